package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats understood by FormatVideoResults.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// ToJSONVideo serializes a single VideoResult to pretty JSON.
func ToJSONVideo(res *VideoResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONVideos serializes several results to a pretty JSON array.
func ToJSONVideos(results []*VideoResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToYAMLVideos serializes results as a YAML list.
func ToYAMLVideos(results []*VideoResult) (string, error) {
	b, err := yaml.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainTextVideo lists the unique readings, one per line.
func ToPlainTextVideo(res *VideoResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	return strings.Join(res.UniqueReadings, "\n"), nil
}

// ToCSVVideos exports one row per reading with its frame statistics.
func ToCSVVideos(results []*VideoResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"source", "plate_number", "frames", "first_seen_frame"})
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, r := range res.UniqueReadings {
			_ = w.Write([]string{
				res.Source,
				r,
				strconv.Itoa(res.Counts[r]),
				strconv.Itoa(res.FirstSeen[r]),
			})
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// FormatVideoResults renders results in the named format.
func FormatVideoResults(results []*VideoResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		if len(results) == 1 {
			return ToJSONVideo(results[0])
		}
		return ToJSONVideos(results)
	case FormatYAML:
		return ToYAMLVideos(results)
	case FormatCSV:
		return ToCSVVideos(results)
	case FormatText, "":
		parts := make([]string, 0, len(results))
		for _, res := range results {
			if res == nil {
				continue
			}
			txt, _ := ToPlainTextVideo(res)
			if len(results) > 1 {
				txt = fmt.Sprintf("# %s\n%s", res.Source, txt)
			}
			parts = append(parts, txt)
		}
		return strings.Join(parts, "\n\n"), nil
	}
	return "", fmt.Errorf("unsupported output format: %s", format)
}
