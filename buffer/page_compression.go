package buffer

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the page compression algorithm
type CompressionType uint8

const (
	CompressionNone   CompressionType = 0
	CompressionLZ4    CompressionType = 1
	CompressionSnappy CompressionType = 2
)

// Compressed page slot layout:
// [0-1]: Magic number (0xC0DE)
// [2]: Compression type (1=LZ4, 2=Snappy)
// [3]: Reserved
// [4-5]: Uncompressed size
// [6-7]: Compressed size
// [8-15]: xxhash64 of the original page bytes
// [16+]: Compressed data
const (
	CompressedPageMagic     = 0xC0DE
	CompressedHeaderSize    = 16
	MinCompressionThreshold = 100 // Minimum bytes saved to store compressed
)

// CompressedPage is one page in compressed form with its metadata
type CompressedPage struct {
	CompressionType  CompressionType
	UncompressedSize uint16
	CompressedSize   uint16
	CompressedData   []byte
	OriginalChecksum uint64 // xxhash64 of the original data
}

// CompressPage compresses a page using the given algorithm. When the
// savings do not clear MinCompressionThreshold (after header overhead),
// the result falls back to CompressionNone with the original bytes.
func CompressPage(data []byte, compressionType CompressionType) (*CompressedPage, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	checksum := xxhash.Sum64(data)

	var compressed []byte

	switch compressionType {
	case CompressionNone:
		compressed = data

	case CompressionLZ4:
		compressed = make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("LZ4 compression failed: %w", err)
		}
		if n == 0 {
			// Incompressible input; CompressBlock signals it with n == 0
			compressed = data
			compressionType = CompressionNone
		} else {
			compressed = compressed[:n]
		}

	case CompressionSnappy:
		compressed = snappy.Encode(nil, data)

	default:
		return nil, fmt.Errorf("unsupported compression type: %d", compressionType)
	}

	if compressionType != CompressionNone {
		savings := len(data) - len(compressed) - CompressedHeaderSize
		if savings < MinCompressionThreshold {
			compressionType = CompressionNone
			compressed = data
		}
	}

	return &CompressedPage{
		CompressionType:  compressionType,
		UncompressedSize: uint16(len(data)),
		CompressedSize:   uint16(len(compressed)),
		CompressedData:   compressed,
		OriginalChecksum: checksum,
	}, nil
}

// DecompressPage decompresses a page and verifies its checksum
func DecompressPage(cp *CompressedPage) ([]byte, error) {
	var decompressed []byte

	switch cp.CompressionType {
	case CompressionNone:
		decompressed = cp.CompressedData

	case CompressionLZ4:
		decompressed = make([]byte, cp.UncompressedSize)
		n, err := lz4.UncompressBlock(cp.CompressedData, decompressed)
		if err != nil {
			return nil, fmt.Errorf("LZ4 decompression failed: %w", err)
		}
		if n != int(cp.UncompressedSize) {
			return nil, fmt.Errorf("LZ4 decompression size mismatch: got %d, expected %d", n, cp.UncompressedSize)
		}

	case CompressionSnappy:
		var err error
		decompressed, err = snappy.Decode(nil, cp.CompressedData)
		if err != nil {
			return nil, fmt.Errorf("snappy decompression failed: %w", err)
		}
		if len(decompressed) != int(cp.UncompressedSize) {
			return nil, fmt.Errorf("snappy decompression size mismatch: got %d, expected %d", len(decompressed), cp.UncompressedSize)
		}

	default:
		return nil, fmt.Errorf("unsupported compression type: %d", cp.CompressionType)
	}

	if checksum := xxhash.Sum64(decompressed); checksum != cp.OriginalChecksum {
		return nil, fmt.Errorf("checksum mismatch: got %016x, expected %016x", checksum, cp.OriginalChecksum)
	}

	return decompressed, nil
}

// SerializeCompressedPage lays a compressed page out into a PageSize slot
func SerializeCompressedPage(cp *CompressedPage) ([]byte, error) {
	totalSize := CompressedHeaderSize + len(cp.CompressedData)
	if totalSize > PageSize {
		return nil, fmt.Errorf("compressed page too large: %d bytes (max %d)", totalSize, PageSize)
	}

	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(buf[0:2], CompressedPageMagic)
	buf[2] = uint8(cp.CompressionType)
	buf[3] = 0
	binary.LittleEndian.PutUint16(buf[4:6], cp.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[6:8], cp.CompressedSize)
	binary.LittleEndian.PutUint64(buf[8:16], cp.OriginalChecksum)
	copy(buf[CompressedHeaderSize:], cp.CompressedData)

	return buf, nil
}

// DeserializeCompressedPage parses a compressed page slot
func DeserializeCompressedPage(data []byte) (*CompressedPage, error) {
	if len(data) < CompressedHeaderSize {
		return nil, fmt.Errorf("data too short for compressed page header: %d bytes", len(data))
	}

	magic := binary.LittleEndian.Uint16(data[0:2])
	if magic != CompressedPageMagic {
		return nil, fmt.Errorf("invalid magic number: got %04x, expected %04x", magic, CompressedPageMagic)
	}

	compressionType := CompressionType(data[2])
	uncompressedSize := binary.LittleEndian.Uint16(data[4:6])
	compressedSize := binary.LittleEndian.Uint16(data[6:8])
	checksum := binary.LittleEndian.Uint64(data[8:16])

	if CompressedHeaderSize+int(compressedSize) > len(data) {
		return nil, fmt.Errorf("insufficient data for compressed page: need %d bytes, have %d",
			CompressedHeaderSize+int(compressedSize), len(data))
	}

	compressedData := make([]byte, compressedSize)
	copy(compressedData, data[CompressedHeaderSize:CompressedHeaderSize+int(compressedSize)])

	return &CompressedPage{
		CompressionType:  compressionType,
		UncompressedSize: uncompressedSize,
		CompressedSize:   compressedSize,
		CompressedData:   compressedData,
		OriginalChecksum: checksum,
	}, nil
}

// IsCompressedPage checks whether a page slot holds a compressed page
func IsCompressedPage(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return binary.LittleEndian.Uint16(data[0:2]) == CompressedPageMagic
}

// GetCompressionRatio returns original size / compressed size
func (cp *CompressedPage) GetCompressionRatio() float64 {
	if cp.CompressedSize == 0 {
		return 1.0
	}
	return float64(cp.UncompressedSize) / float64(cp.CompressedSize)
}

// CompressionStats tracks the wrapper backend's effectiveness
type CompressionStats struct {
	PagesCompressed   uint64
	PagesUncompressed uint64 // stored raw after fallback
	BytesSaved        uint64
}

// CompressedDiskManager wraps a DiskManager with transparent in-slot page
// compression. Writes compress when it pays; reads detect the compressed
// magic and decompress, verifying the checksum. Pages whose raw bytes
// begin with the compressed magic must not use this wrapper.
type CompressedDiskManager struct {
	inner       DiskManager
	compression CompressionType

	pagesCompressed   atomic.Uint64
	pagesUncompressed atomic.Uint64
	bytesSaved        atomic.Uint64
}

// NewCompressedDiskManager wraps inner with the given compression algorithm
func NewCompressedDiskManager(inner DiskManager, compression CompressionType) (*CompressedDiskManager, error) {
	switch compression {
	case CompressionLZ4, CompressionSnappy:
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", compression)
	}
	return &CompressedDiskManager{inner: inner, compression: compression}, nil
}

// ReadPage reads a page slot and decompresses it if needed
func (cdm *CompressedDiskManager) ReadPage(pageID PageID, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("page buffer must be exactly %d bytes, got %d", PageSize, len(buf))
	}

	slot := make([]byte, PageSize)
	if err := cdm.inner.ReadPage(pageID, slot); err != nil {
		return err
	}

	if !IsCompressedPage(slot) {
		copy(buf, slot)
		return nil
	}

	cp, err := DeserializeCompressedPage(slot)
	if err != nil {
		return fmt.Errorf("page %d: %w", pageID, err)
	}
	data, err := DecompressPage(cp)
	if err != nil {
		return fmt.Errorf("page %d: %w", pageID, err)
	}

	copy(buf, data)
	return nil
}

// WritePage compresses a page and writes it, falling back to the raw
// bytes when compression does not pay
func (cdm *CompressedDiskManager) WritePage(pageID PageID, data []byte) error {
	cp, err := CompressPage(data, cdm.compression)
	if err != nil {
		return err
	}

	if cp.CompressionType == CompressionNone {
		cdm.pagesUncompressed.Add(1)
		return cdm.inner.WritePage(pageID, data)
	}

	slot, err := SerializeCompressedPage(cp)
	if err != nil {
		return err
	}

	cdm.pagesCompressed.Add(1)
	cdm.bytesSaved.Add(uint64(int(cp.UncompressedSize) - int(cp.CompressedSize) - CompressedHeaderSize))
	return cdm.inner.WritePage(pageID, slot)
}

// Stats returns compression effectiveness counters
func (cdm *CompressedDiskManager) Stats() CompressionStats {
	return CompressionStats{
		PagesCompressed:   cdm.pagesCompressed.Load(),
		PagesUncompressed: cdm.pagesUncompressed.Load(),
		BytesSaved:        cdm.bytesSaved.Load(),
	}
}

// Close closes the wrapped backend
func (cdm *CompressedDiskManager) Close() error {
	return cdm.inner.Close()
}
