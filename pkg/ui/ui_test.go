package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepBanners(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriterConsole(&buf, false, false)

	c.Step(3, "Saving 7 pages to disk...", 7)
	c.Skipped(4, "Scraping 7 pages for entries...")
	c.Step(1, "Checking proxies...", -1)

	assert.Equal(t, "Step 3: Saving 7 pages to disk... (7)\n"+
		"Step 4: Scraping 7 pages for entries... (Skipped)\n"+
		"Step 1: Checking proxies...\n", buf.String())
}

func TestQuietConsolePrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriterConsole(&buf, true, true)

	c.Step(1, "x", 1)
	c.Skipped(2, "y")
	bar := c.NewProgress(3, 2)
	bar.Update(1, 3)
	bar.Finish()

	assert.Empty(t, buf.String())
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriterConsole(&buf, true, false)

	bar := c.NewProgress(4, 2)
	bar.Update(2, 4)
	bar.Update(4, 4)
	bar.Finish()

	out := buf.String()
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "4/4")
	assert.Equal(t, 2, strings.Count(out, "\r"))
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressBarNonInteractive(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriterConsole(&buf, false, false)

	bar := c.NewProgress(4, 2)
	bar.Update(4, 4)
	bar.Finish()
	assert.Empty(t, buf.String())
}
