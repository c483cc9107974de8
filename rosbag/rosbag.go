// Package rosbag reads and writes ROS bag version 2.0 files at the record
// level. It knows nothing about message payloads; payload bytes pass through
// opaque in both directions.
package rosbag

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	versionFormat = "#ROSBAG V%d.%d\n"

	lenInBytes           = 4
	headerFieldDelimiter = '='
	initialRecordSize    = 4096
)

var (
	supportedVersion = Version{
		Major: 2,
		Minor: 0,
	}
	endian = binary.LittleEndian
)

var (
	errInvalidOp                = errors.New("invalid op code")
	errInvalidHeaderField       = errors.New("invalid record header field")
	errMissingHeaderField       = errors.New("missing record header field")
	errNotFoundConnectionHeader = errors.New("message data references an unknown connection")
	errUnsupportedCompression   = errors.New("unsupported compression algorithm. Available algortihms: [none, bz2, lz4]")
	errWriterClosed             = errors.New("writer is closed")
)

type Op uint8

const (
	// OpInvalid is an extension from the standard. This Op marks an invalid Op.
	OpInvalid     Op = 0x00
	OpMessageData Op = 0x02
	OpBagHeader   Op = 0x03
	OpIndexData   Op = 0x04
	OpChunk       Op = 0x05
	OpChunkInfo   Op = 0x06
	OpConnection  Op = 0x07
)

type Compression string

const (
	CompressionNone Compression = "none"
	CompressionBZ2  Compression = "bz2"
	CompressionLZ4  Compression = "lz4"
)

type Version struct {
	Major uint
	Minor uint
}

func (version *Version) String() string {
	return fmt.Sprintf("%d.%d", version.Major, version.Minor)
}
