package rosbag

import (
	"bufio"
	"compress/bzip2"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var recordPool = sync.Pool{
	New: func() interface{} {
		return &RecordBase{
			Raw: make([]byte, initialRecordSize),
		}
	},
}

// Decoder reads a bag record by record. Records inside chunks are
// transparently decompressed and yielded one by one after their enclosing
// chunk record.
type Decoder struct {
	reader         *bufio.Reader
	chunkReader    io.Reader
	checkedVersion bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next returns the next record in the bag. It returns io.EOF when the bag
// has been fully consumed. The returned record is backed by a pooled buffer;
// call Close once done with it.
func (decoder *Decoder) Next() (Record, error) {
	if !decoder.checkedVersion {
		if err := decoder.checkVersion(); err != nil {
			return nil, err
		}

		decoder.checkedVersion = true
	}

	record := recordPool.Get().(*RecordBase)
	record.closeFn = func() {
		recordPool.Put(record)
	}

	if decoder.chunkReader != nil {
		specializedRecord, err := decoder.decodeRecord(decoder.chunkReader, record)
		switch err {
		case nil:
			return specializedRecord, nil
		case io.EOF:
			/* explicit ignore */
		default:
			// the record is not usable, so recycle it
			record.Close()
			return nil, err
		}

		// the chunk is exhausted, resume reading from the source
		decoder.chunkReader = nil
	}

	specializedRecord, err := decoder.decodeRecord(decoder.reader, record)
	if err != nil {
		record.Close()
		return nil, err
	}

	return specializedRecord, nil
}

func (decoder *Decoder) handleChunk(record *RecordBase) (Record, error) {
	chunkRecord := RecordChunk{
		RecordBase: record,
	}

	compression, err := chunkRecord.Compression()
	if err != nil {
		return nil, err
	}

	chunkReader := io.LimitReader(decoder.reader, int64(record.DataLen))
	switch compression {
	case CompressionNone:
		decoder.chunkReader = chunkReader
	case CompressionBZ2:
		decoder.chunkReader = bzip2.NewReader(chunkReader)
	case CompressionLZ4:
		decoder.chunkReader = lz4.NewReader(chunkReader)
	default:
		return nil, errUnsupportedCompression
	}

	return &chunkRecord, nil
}

func (decoder *Decoder) checkVersion() error {
	// The magic line must end in a newline; Fscanf would treat a trailing
	// newline in the format as optional at EOF, so read the line first.
	magic, err := decoder.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("invalid version line: %w", err)
	}

	var version Version
	if _, err := fmt.Sscanf(magic, versionFormat, &version.Major, &version.Minor); err != nil {
		return fmt.Errorf("invalid version line: %w", err)
	}

	if version.Major != supportedVersion.Major || version.Minor != supportedVersion.Minor {
		return fmt.Errorf("%s is not supported. %s is the current supported version", &version, &supportedVersion)
	}

	return nil
}

func (decoder *Decoder) decodeRecord(r io.Reader, record *RecordBase) (Record, error) {
	var off uint32
	var err error

	record.grow(off + lenInBytes)
	_, err = io.ReadFull(r, record.Raw[off:off+lenInBytes])
	if err != nil {
		return nil, err
	}
	record.HeaderLen = endian.Uint32(record.Raw[off : off+lenInBytes])
	off += lenInBytes

	record.grow(off + record.HeaderLen)
	_, err = io.ReadFull(r, record.Raw[off:off+record.HeaderLen])
	if err != nil {
		return nil, err
	}
	off += record.HeaderLen

	op, err := record.Op()
	if err != nil {
		return nil, err
	}

	record.grow(off + lenInBytes)
	_, err = io.ReadFull(r, record.Raw[off:off+lenInBytes])
	if err != nil {
		return nil, err
	}
	record.DataLen = endian.Uint32(record.Raw[off : off+lenInBytes])
	off += lenInBytes

	// A chunk's data is a stream of inner records. Leave it unread; the
	// following Next calls will pull the inner records out one by one.
	if op == OpChunk {
		return decoder.handleChunk(record)
	}

	record.grow(off + record.DataLen)
	_, err = io.ReadFull(r, record.Raw[off:off+record.DataLen])
	if err != nil {
		return nil, err
	}

	switch op {
	case OpBagHeader:
		return &RecordBagHeader{RecordBase: record}, nil
	case OpConnection:
		return &RecordConnection{RecordBase: record}, nil
	case OpMessageData:
		return &RecordMessageData{RecordBase: record}, nil
	case OpIndexData:
		return &RecordIndexData{RecordBase: record}, nil
	case OpChunkInfo:
		return &RecordChunkInfo{RecordBase: record}, nil
	default:
		return nil, errInvalidOp
	}
}
