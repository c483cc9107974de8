package bagio

import (
	"io"

	"github.com/rosetool/bagio/rosbag"
)

// View is a lazy, re-iterable enumeration of the records of one open
// recording that match a topic set and a time range. Views never materialize
// records; each Cursor replays the recording through its own section reader,
// so concurrent cursors do not share iteration state. A View dies with the
// session state it was derived from: once the session re-loads or closes,
// its cursors fail.
type View struct {
	src    io.ReaderAt
	size   int64
	topics map[string]struct{}
	window TimeRange

	session *Session
	gen     uint64
}

func (v *View) matches(topic string, t rosbag.Time) bool {
	if len(v.topics) > 0 {
		if _, ok := v.topics[topic]; !ok {
			return false
		}
	}
	return v.window.Contains(t)
}

// includesTopic reports whether the view's topic predicate admits topic.
func (v *View) includesTopic(topic string) bool {
	if len(v.topics) == 0 {
		return true
	}
	_, ok := v.topics[topic]
	return ok
}

// Cursor starts a fresh iteration over the view's records.
func (v *View) Cursor() (*Cursor, error) {
	if v.session == nil || v.session.gen != v.gen {
		return nil, &NotLoadedError{Op: "Cursor"}
	}
	return &Cursor{
		view:   v,
		reader: rosbag.NewReader(io.NewSectionReader(v.src, 0, v.size)),
	}, nil
}

// Cursor iterates a View in recording order.
type Cursor struct {
	view   *View
	reader *rosbag.Reader
}

// Next returns the next matching record, or io.EOF after the last one. The
// returned message's payload is only valid until the following call.
func (c *Cursor) Next() (*rosbag.Message, error) {
	for {
		msg, err := c.reader.Next()
		if err != nil {
			return nil, err
		}
		if c.view.matches(msg.Conn.Topic, msg.Time) {
			return msg, nil
		}
	}
}

// connections returns the connection declarations seen so far that pass the
// view's topic predicate, keyed by topic with last-seen-wins semantics.
func (c *Cursor) connections() map[string]*rosbag.ConnectionHeader {
	conns := make(map[string]*rosbag.ConnectionHeader)
	for _, hdr := range c.reader.Connections() {
		if c.view.includesTopic(hdr.Topic) {
			conns[hdr.Topic] = hdr
		}
	}
	return conns
}

func topicSet(topics []string) map[string]struct{} {
	set := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		set[topic] = struct{}{}
	}
	return set
}
