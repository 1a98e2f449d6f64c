package helpers

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type chunkWriter struct {
	w     io.Writer
	limit int
	calls int
}

func (self *chunkWriter) Write(p []byte) (int, error) {
	self.calls++
	if len(p) > self.limit {
		p = p[:self.limit]
	}
	return self.w.Write(p)
}

func TestWriteAll(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cw := &chunkWriter{w: &buf, limit: 3}
	assert.NoError(t, WriteAll(cw, []byte("QPIGS\xb7\xa9\r")))
	assert.Equal(t, "QPIGS\xb7\xa9\r", buf.String())
	assert.Equal(t, 3, cw.calls)

	assert.NoError(t, WriteAll(cw, nil))
	assert.Equal(t, io.ErrShortWrite, WriteAll(&chunkWriter{w: &buf}, []byte("Q")))
}
