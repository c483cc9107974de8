package rosbag

import (
	"io"
)

// Message is one timestamped payload on one connection. Data aliases the
// decoder's record buffer and is only valid until the next call to
// Reader.Next.
type Message struct {
	Conn *ConnectionHeader
	Time Time
	Data []byte
}

// Reader yields the messages of a bag in file order, entering chunks
// transparently and tracking connection declarations as they appear.
type Reader struct {
	decoder *Decoder
	conns   map[uint32]*ConnectionHeader
	last    Record
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		decoder: NewDecoder(r),
		conns:   make(map[uint32]*ConnectionHeader),
	}
}

// Connections returns the connection declarations seen so far, keyed by
// connection ID. After Next has returned io.EOF this covers the whole bag.
func (reader *Reader) Connections() map[uint32]*ConnectionHeader {
	return reader.conns
}

// Next returns the next message in the bag, or io.EOF after the last one.
func (reader *Reader) Next() (*Message, error) {
	if reader.last != nil {
		reader.last.Close()
		reader.last = nil
	}

	for {
		record, err := reader.decoder.Next()
		if err != nil {
			return nil, err
		}

		switch record := record.(type) {
		case *RecordConnection:
			if err := reader.registerConnection(record); err != nil {
				record.Close()
				return nil, err
			}
			record.Close()
		case *RecordMessageData:
			msg, err := reader.resolveMessage(record)
			if err != nil {
				record.Close()
				return nil, err
			}
			reader.last = record
			return msg, nil
		default:
			// bag header, chunk markers, and index records carry no
			// messages
			record.Close()
		}
	}
}

func (reader *Reader) registerConnection(record *RecordConnection) error {
	conn, err := record.Conn()
	if err != nil {
		return err
	}

	// connection records repeat in the index trailer; the first sighting
	// already registered them
	if _, ok := reader.conns[conn]; ok {
		return nil
	}

	hdr, err := record.ConnectionHeader()
	if err != nil {
		return err
	}

	reader.conns[conn] = hdr
	return nil
}

func (reader *Reader) resolveMessage(record *RecordMessageData) (*Message, error) {
	conn, err := record.Conn()
	if err != nil {
		return nil, err
	}

	hdr, ok := reader.conns[conn]
	if !ok {
		return nil, errNotFoundConnectionHeader
	}

	t, err := record.Time()
	if err != nil {
		return nil, err
	}

	return &Message{Conn: hdr, Time: t, Data: record.Data()}, nil
}
