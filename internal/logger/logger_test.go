package logger

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLevels(t *testing.T) {
	var buf syncBuffer
	SetOutput(&buf)
	SetDebug(false)

	Infof("hello %d", 1)
	Warnf("careful")
	Debugf("hidden")
	SetDebug(true)
	Debugf("shown")
	SetDebug(false)

	out := buf.String()
	assert.Contains(t, out, "[INFO] hello 1")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[DEBUG] shown")
	assert.NotContains(t, out, "hidden")
}

func TestConcurrentWrites(t *testing.T) {
	var buf syncBuffer
	SetOutput(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Errorf("boom")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, bytes.Count([]byte(buf.String()), []byte("[ERROR] boom")))
}
