package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
)

// stdio is the path that names stdin or stdout.
const stdio = "-"

// readInput reads path, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == stdio {
		return io.ReadAll(os.Stdin)
	}
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, or stdout for "" and "-".
func writeOutput(path string, data []byte) error {
	if path == "" || path == stdio {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// loadSnapshot reads and decodes a chart snapshot. The raw bytes are
// returned for cache keys.
func loadSnapshot(path string) (*chart.Chart, []byte, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := chart.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, data, nil
}

// encodeSnapshot marshals c as indented JSON with a trailing newline.
func encodeSnapshot(c *chart.Chart) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// splitLines returns the non-blank lines of a JSON-lines stream together
// with their 1-based line numbers.
func splitLines(data []byte) ([][]byte, []int) {
	var (
		lines [][]byte
		nums  []int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		lines = append(lines, bytes.Clone(line))
		nums = append(nums, n)
	}
	return lines, nums
}
