package rosbag

import (
	"bytes"
	"fmt"
	"log"
)

// iterateHeaderFields walks the name=value fields of a record header. fn
// returns false to stop the iteration early.
func iterateHeaderFields(header []byte, fn func(key, value []byte) bool) error {
	for len(header) > 0 {
		if len(header) < lenInBytes {
			return errInvalidHeaderField
		}

		fieldLen := int(endian.Uint32(header))
		header = header[lenInBytes:]
		if fieldLen > len(header) {
			return errInvalidHeaderField
		}

		field := header[:fieldLen]
		sep := bytes.IndexByte(field, headerFieldDelimiter)
		if sep == -1 {
			return errInvalidHeaderField
		}

		if !fn(field[:sep], field[sep+1:]) {
			break
		}

		header = header[fieldLen:]
	}

	return nil
}

// Record is one length-prefixed record in a bag: a header of name=value
// fields followed by opaque data. Specialized record types expose the header
// fields that their op defines.
type Record interface {
	Op() (Op, error)
	Header() []byte
	Data() []byte
	// Close releases the record's buffer for reuse. The record and any
	// slices derived from it must not be used afterwards.
	Close()
}

type RecordBase struct {
	// Raw layout: header len, header, data len, data. Chunk records carry
	// their data out-of-band, so for them Raw stops after the data length.
	Raw       []byte
	HeaderLen uint32
	DataLen   uint32
	closeFn   func()
}

func (record *RecordBase) Header() []byte {
	return record.Raw[lenInBytes : lenInBytes+record.HeaderLen]
}

func (record *RecordBase) Data() []byte {
	off := 2*lenInBytes + record.HeaderLen
	if uint32(len(record.Raw)) < off+record.DataLen {
		return nil
	}
	return record.Raw[off : off+record.DataLen]
}

func (record *RecordBase) Close() {
	if record.closeFn != nil {
		record.closeFn()
	}
}

func (record *RecordBase) grow(n uint32) {
	if uint32(cap(record.Raw)) >= n {
		record.Raw = record.Raw[:n]
		return
	}

	raw := make([]byte, n)
	copy(raw, record.Raw)
	record.Raw = raw
}

func (record *RecordBase) Op() (Op, error) {
	var op Op
	err := record.findField([]byte("op"), func(value []byte) error {
		if len(value) != 1 {
			return errInvalidOp
		}
		op = Op(value[0])
		return nil
	})
	if err != nil {
		return OpInvalid, err
	}
	return op, nil
}

// findField locates key in the record header and hands its value to fn.
func (record *RecordBase) findField(key []byte, fn func(value []byte) error) error {
	var found bool
	var fnErr error
	err := iterateHeaderFields(record.Header(), func(k, value []byte) bool {
		if !bytes.Equal(k, key) {
			return true
		}
		found = true
		fnErr = fn(value)
		return false
	})
	if err != nil {
		return err
	}
	if fnErr != nil {
		return fnErr
	}
	if !found {
		return fmt.Errorf("%w: %s", errMissingHeaderField, key)
	}
	return nil
}

func (record *RecordBase) uint32Field(key []byte) (uint32, error) {
	var v uint32
	err := record.findField(key, func(value []byte) error {
		if len(value) != 4 {
			return errInvalidHeaderField
		}
		v = endian.Uint32(value)
		return nil
	})
	return v, err
}

func (record *RecordBase) uint64Field(key []byte) (uint64, error) {
	var v uint64
	err := record.findField(key, func(value []byte) error {
		if len(value) != 8 {
			return errInvalidHeaderField
		}
		v = endian.Uint64(value)
		return nil
	})
	return v, err
}

func (record *RecordBase) timeField(key []byte) (Time, error) {
	var t Time
	err := record.findField(key, func(value []byte) error {
		if len(value) != 8 {
			return errInvalidHeaderField
		}
		t.Sec = endian.Uint32(value)
		t.NSec = endian.Uint32(value[4:])
		return nil
	})
	return t, err
}

func (record *RecordBase) stringField(key []byte) (string, error) {
	var s string
	err := record.findField(key, func(value []byte) error {
		s = string(value)
		return nil
	})
	return s, err
}

// RecordBagHeader is the first record in a bag. Its counts and index
// position are zero when the bag was written without a trailing index.
type RecordBagHeader struct {
	*RecordBase
}

func (record *RecordBagHeader) IndexPos() (uint64, error) {
	return record.uint64Field([]byte("index_pos"))
}

func (record *RecordBagHeader) ConnCount() (uint32, error) {
	return record.uint32Field([]byte("conn_count"))
}

func (record *RecordBagHeader) ChunkCount() (uint32, error) {
	return record.uint32Field([]byte("chunk_count"))
}

// RecordChunk announces a run of compressed records. Its data is consumed
// through the decoder rather than Data().
type RecordChunk struct {
	*RecordBase
}

func (record *RecordChunk) Compression() (Compression, error) {
	v, err := record.stringField([]byte("compression"))
	return Compression(v), err
}

// Size returns the uncompressed size of the chunk data.
func (record *RecordChunk) Size() (uint32, error) {
	return record.uint32Field([]byte("size"))
}

// ConnectionHeader is the declaration binding a connection ID to a topic and
// its message type.
type ConnectionHeader struct {
	Topic             string
	Type              string
	MD5Sum            string
	MessageDefinition string
	CallerID          string
	Latching          bool
	// Raw is the connection header exactly as stored in the bag so that
	// re-exported bags carry it verbatim.
	Raw []byte
}

type RecordConnection struct {
	*RecordBase
}

// Conn returns the connection ID that message data records reference.
func (record *RecordConnection) Conn() (uint32, error) {
	return record.uint32Field([]byte("conn"))
}

// ConnectionHeader parses the record data, which holds a second header-style
// field block describing the connection. The returned header does not alias
// the record buffer.
func (record *RecordConnection) ConnectionHeader() (*ConnectionHeader, error) {
	hdr := ConnectionHeader{Raw: append([]byte(nil), record.Data()...)}
	err := iterateHeaderFields(hdr.Raw, func(key, value []byte) bool {
		switch {
		case bytes.Equal(key, []byte("topic")):
			hdr.Topic = string(value)
		case bytes.Equal(key, []byte("type")):
			hdr.Type = string(value)
		case bytes.Equal(key, []byte("md5sum")):
			hdr.MD5Sum = string(value)
		case bytes.Equal(key, []byte("message_definition")):
			hdr.MessageDefinition = string(value)
		case bytes.Equal(key, []byte("callerid")):
			hdr.CallerID = string(value)
		case bytes.Equal(key, []byte("latching")):
			hdr.Latching = len(value) == 1 && value[0] == '1'
		default:
			log.Printf("unknown connection header field %s. Ignoring...", string(key))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return &hdr, nil
}

type RecordMessageData struct {
	*RecordBase
}

func (record *RecordMessageData) Conn() (uint32, error) {
	return record.uint32Field([]byte("conn"))
}

func (record *RecordMessageData) Time() (Time, error) {
	return record.timeField([]byte("time"))
}

type RecordIndexData struct {
	*RecordBase
}

func (record *RecordIndexData) Ver() (uint32, error) {
	return record.uint32Field([]byte("ver"))
}

func (record *RecordIndexData) Conn() (uint32, error) {
	return record.uint32Field([]byte("conn"))
}

func (record *RecordIndexData) Count() (uint32, error) {
	return record.uint32Field([]byte("count"))
}

type RecordChunkInfo struct {
	*RecordBase
}

func (record *RecordChunkInfo) Ver() (uint32, error) {
	return record.uint32Field([]byte("ver"))
}

func (record *RecordChunkInfo) ChunkPos() (uint64, error) {
	return record.uint64Field([]byte("chunk_pos"))
}

func (record *RecordChunkInfo) StartTime() (Time, error) {
	return record.timeField([]byte("start_time"))
}

func (record *RecordChunkInfo) EndTime() (Time, error) {
	return record.timeField([]byte("end_time"))
}

func (record *RecordChunkInfo) Count() (uint32, error) {
	return record.uint32Field([]byte("count"))
}
