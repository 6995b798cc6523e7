package devserver

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/cryguy/monacoworkers/internal/core"
)

// encoder compresses worker bundles for clients that accept it. Encoded
// bodies are memoized by content digest since the same bundle is fetched on
// every page load.
type encoder struct {
	mu   sync.Mutex
	memo map[string][]byte
}

func newEncoder() *encoder {
	return &encoder{memo: make(map[string][]byte)}
}

// encode returns data in the best encoding allowed by acceptEncoding and
// the encoding name, or data unchanged and "".
func (e *encoder) encode(acceptEncoding string, data []byte) ([]byte, string, error) {
	enc := negotiate(acceptEncoding)
	if enc == "" || len(data) == 0 {
		return data, "", nil
	}

	key := fmt.Sprintf("%s:%016x:%d", enc, xxhash.Sum64(data), len(data))
	e.mu.Lock()
	body, ok := e.memo[key]
	e.mu.Unlock()
	if ok {
		return body, enc, nil
	}

	body, err := compress(enc, data)
	if err != nil {
		return nil, "", err
	}
	e.mu.Lock()
	e.memo[key] = body
	e.mu.Unlock()
	return body, enc, nil
}

func compress(enc string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch enc {
	case "br":
		w = brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	case "gzip":
		gz, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
		if err != nil {
			return nil, zerr.Wrap(core.ErrIO, "compressing gzip: "+err.Error())
		}
		w = gz
	default:
		return nil, zerr.With(zerr.New("unsupported encoding"), "encoding", enc)
	}
	if _, err := w.Write(data); err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, "compressing: "+err.Error()), "encoding", enc)
	}
	if err := w.Close(); err != nil {
		return nil, zerr.With(zerr.Wrap(core.ErrIO, "compressing: "+err.Error()), "encoding", enc)
	}
	return buf.Bytes(), nil
}

// negotiate picks br over gzip from an Accept-Encoding header, honouring q=0.
func negotiate(header string) string {
	accepted := map[string]bool{}
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		accepted[name] = q > 0
	}
	switch {
	case accepted["br"]:
		return "br"
	case accepted["gzip"]:
		return "gzip"
	}
	return ""
}
