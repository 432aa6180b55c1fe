package loader

import "io"

// countingReader counts the bytes taken from the underlying input, so a
// compressed upload can be reported by its size on the wire as well as
// its decoded size.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
