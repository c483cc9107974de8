// Package bagio slices recorded ROS bags. A Session loads one recording,
// reports its topics, connection types, and time span, and re-exports topic
// and time subsets into new bags without decoding message payloads.
package bagio

import (
	"io"
	"os"
	"sort"

	"github.com/rosetool/bagio/rosbag"
)

type Option func(*Session)

// WithDumpCompression selects the chunk compression of exported bags.
func WithDumpCompression(compression rosbag.Compression) Option {
	return func(s *Session) {
		s.compression = compression
	}
}

// Session owns one recording opened for read and the views derived from it.
// Load, the introspection calls, and Dump run to completion before
// returning; a Session is not safe for concurrent use, but independent
// sessions over independent files are.
type Session struct {
	compression rosbag.Compression

	file *os.File
	path string
	size int64
	gen  uint64

	view    *View
	conns   map[string]string
	headers map[string]*rosbag.ConnectionHeader
	counts  map[string]uint64
	start   rosbag.Time
	end     rosbag.Time
	loaded  bool
}

func NewSession(opts ...Option) *Session {
	s := &Session{compression: rosbag.CompressionNone}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load opens the recording at path for read and scopes the session's view to
// topics; an empty topic set admits every topic. Any previously loaded
// recording is released first, so a failed Load leaves the session unloaded.
func (s *Session) Load(path string, topics []string) error {
	s.release()

	f, err := os.Open(path)
	if err != nil {
		return &OpenError{Path: path, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return &OpenError{Path: path, Err: err}
	}

	view := &View{
		src:     f,
		size:    fi.Size(),
		topics:  topicSet(topics),
		window:  Unbounded(),
		session: s,
		gen:     s.gen,
	}
	if err := s.scan(view); err != nil {
		f.Close()
		return &OpenError{Path: path, Err: err}
	}

	s.file = f
	s.path = path
	s.size = fi.Size()
	s.view = view
	s.loaded = true
	return nil
}

// scan walks the view once, snapshotting its connection index, per-topic
// record counts, and time bounds.
func (s *Session) scan(view *View) error {
	cur, err := view.Cursor()
	if err != nil {
		return err
	}

	counts := make(map[string]uint64)
	var start, end rosbag.Time
	var total uint64
	for {
		msg, err := cur.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		counts[msg.Conn.Topic]++
		if total == 0 || msg.Time.Before(start) {
			start = msg.Time
		}
		if total == 0 || msg.Time.After(end) {
			end = msg.Time
		}
		total++
	}

	headers := cur.connections()
	conns := make(map[string]string, len(headers))
	for topic, hdr := range headers {
		conns[topic] = hdr.Type
	}

	s.conns = conns
	s.headers = headers
	s.counts = counts
	s.start = start
	s.end = end
	return nil
}

// Connections returns the topic to message type mapping snapshotted by the
// last Load.
func (s *Session) Connections() (map[string]string, error) {
	if !s.loaded {
		return nil, &NotLoadedError{Op: "Connections"}
	}
	conns := make(map[string]string, len(s.conns))
	for topic, typ := range s.conns {
		conns[topic] = typ
	}
	return conns, nil
}

// Topics returns the sorted topic names visible through the loaded view.
func (s *Session) Topics() ([]string, error) {
	if !s.loaded {
		return nil, &NotLoadedError{Op: "Topics"}
	}
	topics := make([]string, 0, len(s.conns))
	for topic := range s.conns {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics, nil
}

// TimeRange returns the earliest and latest record timestamps visible
// through the loaded view. A view with no records reports the zero pair;
// callers must treat that as empty, not as a window at the epoch.
func (s *Session) TimeRange() (start, end rosbag.Time, err error) {
	if !s.loaded {
		return rosbag.Time{}, rosbag.Time{}, &NotLoadedError{Op: "TimeRange"}
	}
	return s.start, s.end, nil
}

// MessageCounts returns the per-topic record counts of the loaded view.
func (s *Session) MessageCounts() (map[string]uint64, error) {
	if !s.loaded {
		return nil, &NotLoadedError{Op: "MessageCounts"}
	}
	counts := make(map[string]uint64, len(s.counts))
	for topic, n := range s.counts {
		counts[topic] = n
	}
	return counts, nil
}

// Dump re-exports the records matching topics and window into a new bag at
// path. An empty topic set exports every topic present in the source
// recording, regardless of the filter given to Load; topics absent from the
// source simply match nothing. Topic, timestamp, and connection header
// travel verbatim and payload bytes are not re-encoded. The export runs over
// its own cursor, so it never disturbs the loaded view, and a failed export
// leaves the session usable; the partial output file is not cleaned up.
func (s *Session) Dump(path string, topics []string, window TimeRange) error {
	if !s.loaded {
		return &NotLoadedError{Op: "Dump"}
	}

	view := &View{
		src:     s.file,
		size:    s.size,
		topics:  topicSet(topics),
		window:  window,
		session: s,
		gen:     s.gen,
	}
	cur, err := view.Cursor()
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return &CreateError{Path: path, Err: err}
	}

	writer, err := rosbag.NewWriter(out, rosbag.WithCompression(s.compression))
	if err != nil {
		out.Close()
		return &CreateError{Path: path, Err: err}
	}

	for {
		msg, err := cur.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return &OpenError{Path: s.path, Err: err}
		}

		if err := writer.WriteMessage(msg.Conn, msg.Time, msg.Data); err != nil {
			out.Close()
			return &CreateError{Path: path, Err: err}
		}
	}

	if err := writer.Close(); err != nil {
		out.Close()
		return &CreateError{Path: path, Err: err}
	}
	if err := out.Close(); err != nil {
		return &CreateError{Path: path, Err: err}
	}
	return nil
}

// DumpAll is Dump without a time filter.
func (s *Session) DumpAll(path string, topics []string) error {
	return s.Dump(path, topics, Unbounded())
}

// Close releases the loaded recording and invalidates every view derived
// from it. It is idempotent and safe on a session that never loaded.
func (s *Session) Close() error {
	return s.release()
}

func (s *Session) release() error {
	s.gen++

	var err error
	if s.file != nil {
		err = s.file.Close()
		s.file = nil
	}

	s.path = ""
	s.size = 0
	s.view = nil
	s.conns = nil
	s.headers = nil
	s.counts = nil
	s.start = rosbag.Time{}
	s.end = rosbag.Time{}
	s.loaded = false
	return err
}
