package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// encode wraps data in the header and, per path's extension, a compressor.
func encode(kind string, path string, data []byte) ([]byte, error) {
	var body bytes.Buffer
	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(&body)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case strings.HasSuffix(path, ".zip"):
		zw, err := flate.NewWriter(&body, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	default:
		body.Write(data)
	}

	var out bytes.Buffer
	h := header{Magic: magicNumber, SchemaVersion: schemaVersion, KindTag: kindTag(kind)}
	if err := binary.Write(&out, binary.BigEndian, h); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// decode strips the header, verifies magic/schema, and decompresses per
// path's extension. ErrIncompatible is returned for a schema mismatch;
// ErrCorrupt for anything else that fails to parse.
func decode(path string, raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, ErrCorrupt
	}
	var h header
	if err := binary.Read(bytes.NewReader(raw[:8]), binary.BigEndian, &h); err != nil {
		return nil, ErrCorrupt
	}
	if h.Magic != magicNumber {
		return nil, ErrCorrupt
	}
	if h.SchemaVersion != schemaVersion {
		return nil, ErrIncompatible
	}

	body := raw[8:]
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return out, nil
	case strings.HasSuffix(path, ".zip"):
		zr := flate.NewReader(bytes.NewReader(body))
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return out, nil
	default:
		return body, nil
	}
}
