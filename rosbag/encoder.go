package rosbag

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	// The first record of a bag is padded out to this many bytes so the
	// index position can be patched in place on Close.
	fileHeaderRecordLen = 4096

	defaultChunkSize = 768 * 1024

	indexVersion     = 1
	chunkInfoVersion = 1
)

var errNoTopic = errors.New("connection header has no topic")

type WriterOption func(*Writer)

// WithCompression selects the chunk compression. CompressionBZ2 is not
// supported on the write path; the standard library only decompresses it.
func WithCompression(compression Compression) WriterOption {
	return func(w *Writer) {
		w.compression = compression
	}
}

// WithChunkSize sets the uncompressed size at which a chunk is flushed.
func WithChunkSize(n int) WriterOption {
	return func(w *Writer) {
		w.chunkSize = n
	}
}

type indexEntry struct {
	time   Time
	offset uint32
}

type chunkInfo struct {
	pos    int64
	start  Time
	end    Time
	counts map[uint32]uint32
}

// Writer appends messages to a new bag. Messages are buffered into chunks;
// connection records are emitted into the chunk that first references them
// and repeated in the index trailer written by Close. When the destination
// is seekable, Close also patches the index position into the file header.
type Writer struct {
	w   io.Writer
	ws  io.WriteSeeker
	pos int64

	compression Compression
	chunkSize   int

	chunk       bytes.Buffer
	chunkHasMsg bool
	chunkStart  Time
	chunkEnd    Time
	chunkIndex  map[uint32][]indexEntry

	conns   []*ConnectionHeader
	connIDs map[string]uint32

	chunkInfos []chunkInfo
	closed     bool
}

func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	writer := &Writer{
		w:           w,
		compression: CompressionNone,
		chunkSize:   defaultChunkSize,
		chunkIndex:  make(map[uint32][]indexEntry),
		connIDs:     make(map[string]uint32),
	}
	writer.ws, _ = w.(io.WriteSeeker)

	for _, opt := range opts {
		opt(writer)
	}

	switch writer.compression {
	case CompressionNone, CompressionLZ4:
	default:
		return nil, errUnsupportedCompression
	}

	if err := writer.write(versionMagic()); err != nil {
		return nil, err
	}
	if err := writer.writeFileHeader(0, 0, 0); err != nil {
		return nil, err
	}

	return writer, nil
}

// WriteMessage appends one message. The connection is identified by its
// topic; its declaration is written ahead of the first message that uses it,
// verbatim when the header carries raw bytes from a read bag.
func (writer *Writer) WriteMessage(conn *ConnectionHeader, t Time, data []byte) error {
	if writer.closed {
		return errWriterClosed
	}
	if conn == nil || conn.Topic == "" {
		return errNoTopic
	}

	id, ok := writer.connIDs[conn.Topic]
	if !ok {
		id = uint32(len(writer.conns))
		writer.connIDs[conn.Topic] = id
		writer.conns = append(writer.conns, conn)
		writeRecordTo(&writer.chunk, connRecordHeader(id, conn.Topic), connRecordData(conn))
	}

	offset := uint32(writer.chunk.Len())

	var header []byte
	header = appendField(header, "conn", u32Bytes(id))
	header = appendField(header, "time", timeBytes(t))
	header = appendField(header, "op", []byte{byte(OpMessageData)})
	writeRecordTo(&writer.chunk, header, data)

	if !writer.chunkHasMsg || t.Before(writer.chunkStart) {
		writer.chunkStart = t
	}
	if !writer.chunkHasMsg || t.After(writer.chunkEnd) {
		writer.chunkEnd = t
	}
	writer.chunkHasMsg = true
	writer.chunkIndex[id] = append(writer.chunkIndex[id], indexEntry{time: t, offset: offset})

	if writer.chunk.Len() >= writer.chunkSize {
		return writer.flushChunk()
	}
	return nil
}

// Close flushes the pending chunk, writes the connection and chunk info
// trailer, and patches the file header when the destination seeks. It does
// not close the underlying writer.
func (writer *Writer) Close() error {
	if writer.closed {
		return nil
	}
	writer.closed = true

	if err := writer.flushChunk(); err != nil {
		return err
	}

	indexPos := writer.pos

	for id, conn := range writer.conns {
		err := writer.writeRecord(connRecordHeader(uint32(id), conn.Topic), connRecordData(conn))
		if err != nil {
			return err
		}
	}

	for _, info := range writer.chunkInfos {
		var header []byte
		header = appendField(header, "ver", u32Bytes(chunkInfoVersion))
		header = appendField(header, "chunk_pos", u64Bytes(uint64(info.pos)))
		header = appendField(header, "start_time", timeBytes(info.start))
		header = appendField(header, "end_time", timeBytes(info.end))
		header = appendField(header, "count", u32Bytes(uint32(len(info.counts))))
		header = appendField(header, "op", []byte{byte(OpChunkInfo)})

		var data []byte
		for id := range writer.conns {
			count, ok := info.counts[uint32(id)]
			if !ok {
				continue
			}
			data = appendUint32(data, uint32(id))
			data = appendUint32(data, count)
		}

		if err := writer.writeRecord(header, data); err != nil {
			return err
		}
	}

	if writer.ws == nil {
		return nil
	}

	if _, err := writer.ws.Seek(int64(len(versionMagic())), io.SeekStart); err != nil {
		return err
	}
	end := writer.pos
	writer.pos = int64(len(versionMagic()))
	if err := writer.writeFileHeader(uint64(indexPos), uint32(len(writer.conns)), uint32(len(writer.chunkInfos))); err != nil {
		return err
	}
	writer.pos = end
	_, err := writer.ws.Seek(0, io.SeekEnd)
	return err
}

func (writer *Writer) flushChunk() error {
	if writer.chunk.Len() == 0 {
		return nil
	}

	uncompressed := writer.chunk.Bytes()
	data := uncompressed
	if writer.compression == CompressionLZ4 {
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(uncompressed); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}

	chunkPos := writer.pos

	var header []byte
	header = appendField(header, "compression", []byte(writer.compression))
	header = appendField(header, "size", u32Bytes(uint32(len(uncompressed))))
	header = appendField(header, "op", []byte{byte(OpChunk)})
	if err := writer.writeRecord(header, data); err != nil {
		return err
	}

	counts := make(map[uint32]uint32, len(writer.chunkIndex))
	for id := range writer.conns {
		entries, ok := writer.chunkIndex[uint32(id)]
		if !ok {
			continue
		}
		counts[uint32(id)] = uint32(len(entries))

		var idxHeader []byte
		idxHeader = appendField(idxHeader, "ver", u32Bytes(indexVersion))
		idxHeader = appendField(idxHeader, "conn", u32Bytes(uint32(id)))
		idxHeader = appendField(idxHeader, "count", u32Bytes(uint32(len(entries))))
		idxHeader = appendField(idxHeader, "op", []byte{byte(OpIndexData)})

		idxData := make([]byte, 0, len(entries)*12)
		for _, entry := range entries {
			idxData = appendUint32(idxData, entry.time.Sec)
			idxData = appendUint32(idxData, entry.time.NSec)
			idxData = appendUint32(idxData, entry.offset)
		}

		if err := writer.writeRecord(idxHeader, idxData); err != nil {
			return err
		}
	}

	writer.chunkInfos = append(writer.chunkInfos, chunkInfo{
		pos:    chunkPos,
		start:  writer.chunkStart,
		end:    writer.chunkEnd,
		counts: counts,
	})

	writer.chunk.Reset()
	writer.chunkHasMsg = false
	writer.chunkIndex = make(map[uint32][]indexEntry)
	return nil
}

func (writer *Writer) writeFileHeader(indexPos uint64, connCount, chunkCount uint32) error {
	var header []byte
	header = appendField(header, "index_pos", u64Bytes(indexPos))
	header = appendField(header, "conn_count", u32Bytes(connCount))
	header = appendField(header, "chunk_count", u32Bytes(chunkCount))
	header = appendField(header, "op", []byte{byte(OpBagHeader)})

	padLen := fileHeaderRecordLen - 2*lenInBytes - len(header)
	pad := bytes.Repeat([]byte{' '}, padLen)
	return writer.writeRecord(header, pad)
}

func (writer *Writer) write(p []byte) error {
	n, err := writer.w.Write(p)
	writer.pos += int64(n)
	return err
}

func (writer *Writer) writeRecord(header, data []byte) error {
	var lenBuf [lenInBytes]byte

	endian.PutUint32(lenBuf[:], uint32(len(header)))
	if err := writer.write(lenBuf[:]); err != nil {
		return err
	}
	if err := writer.write(header); err != nil {
		return err
	}

	endian.PutUint32(lenBuf[:], uint32(len(data)))
	if err := writer.write(lenBuf[:]); err != nil {
		return err
	}
	return writer.write(data)
}

func writeRecordTo(buf *bytes.Buffer, header, data []byte) {
	var lenBuf [lenInBytes]byte

	endian.PutUint32(lenBuf[:], uint32(len(header)))
	buf.Write(lenBuf[:])
	buf.Write(header)

	endian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

func connRecordHeader(id uint32, topic string) []byte {
	var header []byte
	header = appendField(header, "conn", u32Bytes(id))
	header = appendField(header, "topic", []byte(topic))
	header = appendField(header, "op", []byte{byte(OpConnection)})
	return header
}

func connRecordData(conn *ConnectionHeader) []byte {
	if conn.Raw != nil {
		return conn.Raw
	}

	latching := []byte{'0'}
	if conn.Latching {
		latching[0] = '1'
	}

	var data []byte
	data = appendField(data, "topic", []byte(conn.Topic))
	data = appendField(data, "type", []byte(conn.Type))
	data = appendField(data, "md5sum", []byte(conn.MD5Sum))
	data = appendField(data, "message_definition", []byte(conn.MessageDefinition))
	data = appendField(data, "callerid", []byte(conn.CallerID))
	data = appendField(data, "latching", latching)
	return data
}

func versionMagic() []byte {
	return []byte(fmt.Sprintf(versionFormat, supportedVersion.Major, supportedVersion.Minor))
}

func appendField(header []byte, key string, value []byte) []byte {
	header = appendUint32(header, uint32(len(key)+1+len(value)))
	header = append(header, key...)
	header = append(header, headerFieldDelimiter)
	return append(header, value...)
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	endian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func u32Bytes(v uint32) []byte {
	return appendUint32(nil, v)
}

func u64Bytes(v uint64) []byte {
	var tmp [8]byte
	endian.PutUint64(tmp[:], v)
	return tmp[:]
}

func timeBytes(t Time) []byte {
	var tmp [8]byte
	endian.PutUint32(tmp[:], t.Sec)
	endian.PutUint32(tmp[4:], t.NSec)
	return tmp[:]
}
