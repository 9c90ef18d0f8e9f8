package processing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kacperjurak/gonleis/pkg/models"
)

// ErrNoPoints is returned for a data file without measurement rows.
var ErrNoPoints = errors.New("no data points")

// ReadFile parses a measurement file, see Parse.
func ReadFile(path string) (models.Spectrum, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided data path is intentional
	if err != nil {
		return models.Spectrum{}, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Parse reads whitespace-separated rows of frequency, Re Z1, Im Z1, Re Z2
// and Im Z2. Blank lines and lines starting with '#' are skipped.
func Parse(r io.Reader, name string) (models.Spectrum, error) {
	s := models.Spectrum{Name: name}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return models.Spectrum{}, fmt.Errorf("%s:%d: expected 5 columns, got %d", name, lineNo, len(fields))
		}
		var vals [5]float64
		for i := range vals {
			val, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return models.Spectrum{}, fmt.Errorf("%s:%d: %w", name, lineNo, err)
			}
			vals[i] = val
		}
		s.Frequencies = append(s.Frequencies, vals[0])
		s.Z1 = append(s.Z1, complex(vals[1], vals[2]))
		s.Z2 = append(s.Z2, complex(vals[3], vals[4]))
	}
	if err := scanner.Err(); err != nil {
		return models.Spectrum{}, err
	}
	if s.Len() == 0 {
		return models.Spectrum{}, fmt.Errorf("%w in %s", ErrNoPoints, name)
	}
	return s, nil
}

// Write stores s in the format Parse reads.
func Write(w io.Writer, s models.Spectrum) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# f ReZ1 ImZ1 ReZ2 ImZ2")
	for i, f := range s.Frequencies {
		fmt.Fprintf(bw, "%.16e %.16e %.16e %.16e %.16e\n",
			f, real(s.Z1[i]), imag(s.Z1[i]), real(s.Z2[i]), imag(s.Z2[i]))
	}
	return bw.Flush()
}

// Cut drops the first low and the last high points of s.
func Cut(s models.Spectrum, low, high uint) (models.Spectrum, error) {
	n := uint(s.Len())
	if low+high >= n {
		return models.Spectrum{}, fmt.Errorf("%w: cutting %d+%d of %d points", ErrNoPoints, low, high, n)
	}
	end := n - high
	return models.Spectrum{
		Name:        s.Name,
		Frequencies: s.Frequencies[low:end],
		Z1:          s.Z1[low:end],
		Z2:          s.Z2[low:end],
	}, nil
}
