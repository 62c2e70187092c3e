package dataset

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
)

const maxLineSize = 16 * 1024 * 1024

// ReadRecordsFile opens path and parses it with ReadRecords.
// Files ending in ".gz" or ".xz" are decompressed on the fly.
func ReadRecordsFile(path string, layout Layout, withLabels bool, logger log.Logger) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	r, err := decompress(path, f)
	if err != nil {
		return nil, err
	}
	records, err := ReadRecords(r, layout, withLabels, logger.With(log.PathKey, path))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return records, nil
}

func decompress(path string, r io.Reader) (io.Reader, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "gzip %s", path)
		}
		return zr, nil
	case strings.HasSuffix(path, ".xz"):
		zr, err := xz.NewReader(bufio.NewReader(r))
		if err != nil {
			return nil, errors.Wrapf(err, "xz %s", path)
		}
		return zr, nil
	default:
		return r, nil
	}
}

// ReadRecords parses delimited lines into records.
//
// Malformed id, label and feature fields are logged and left absent; the
// record is still produced. Lines with too few columns for the layout are
// logged and skipped. Only I/O failures are returned as errors.
func ReadRecords(r io.Reader, layout Layout, withLabels bool, logger log.Logger) ([]*Record, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	var labelRe *regexp.Regexp
	if layout.LabelRegex != "" {
		labelRe = regexp.MustCompile(layout.LabelRegex)
	}
	needed := layout.FeatureEnd
	if layout.IDIndex > needed {
		needed = layout.IDIndex
	}
	if withLabels && layout.LabelIndex > needed {
		needed = layout.LabelIndex
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []*Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 && layout.SkipFirstLine {
			continue
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		values := strings.Split(line, layout.Delimiter)
		if len(values) <= needed {
			logger.Warn("Skipping short line",
				log.LineKey, lineNo,
				"columns", len(values),
				"required", needed+1,
			)
			continue
		}

		var id *int64
		if v, err := strconv.ParseInt(strings.TrimSpace(values[layout.IDIndex]), 10, 64); err == nil {
			id = &v
		} else {
			logger.Error("Could not parse id", log.LineKey, lineNo, "value", values[layout.IDIndex])
		}

		var label *int
		if withLabels {
			text := values[layout.LabelIndex]
			if labelRe != nil {
				text = labelRe.ReplaceAllString(text, "")
			}
			if v, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
				v += layout.Offset()
				label = &v
			} else {
				logger.Warn("Could not parse label", log.LineKey, lineNo, "value", text)
			}
		}

		features := make(map[int]float64, layout.FeatureEnd-layout.FeatureStart+1)
		for i := layout.FeatureStart; i <= layout.FeatureEnd; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(values[i]), 64)
			if err != nil {
				logger.Warn("Could not parse feature", log.LineKey, lineNo, "column", i, "value", values[i])
				continue
			}
			if v != 0 {
				features[i] = v
			}
		}
		records = append(records, &Record{ID: id, Features: features, ActualLabel: label})
	}
	if err := scanner.Err(); err != nil {
		return records, errors.Wrap(err, "scan records")
	}

	logger.Info("Loaded records", log.SamplesKey, len(records))
	return records, nil
}
