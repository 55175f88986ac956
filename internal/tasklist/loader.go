package tasklist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"faceswap/internal/domain"
)

// Required header fields of a task list, in canonical order.
var requiredFields = []string{"face_image", "target_image", "output"}

// InvalidError reports a task list whose header is missing required fields.
type InvalidError struct {
	Missing []string
	Found   []string
}

// Error lists both the missing and the actually present field names.
func (e *InvalidError) Error() string {
	return fmt.Sprintf(
		"task list is missing required fields: %s (found: %s)",
		strings.Join(e.Missing, ", "),
		strings.Join(e.Found, ", "),
	)
}

// Load parses a CSV task list into ordered job descriptors.
//
// The header must contain face_image, target_image and output in any order;
// a structurally invalid header fails the whole load before any descriptor
// is returned. Field values are trimmed. Whether a referenced file exists
// is deliberately not checked here; that is a per-job concern.
func Load(path string) ([]domain.JobDescriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task list: %w", err)
	}
	defer file.Close()

	return parse(file)
}

func parse(r io.Reader) ([]domain.JobDescriptor, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &InvalidError{Missing: append([]string(nil), requiredFields...)}
		}
		return nil, fmt.Errorf("read task list header: %w", err)
	}

	index := make(map[string]int, len(header))
	found := make([]string, 0, len(header))
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		found = append(found, trimmed)
		if _, ok := index[trimmed]; !ok {
			index[trimmed] = i
		}
	}

	missing := make([]string, 0, len(requiredFields))
	for _, name := range requiredFields {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(found)
		return nil, &InvalidError{Missing: missing, Found: found}
	}

	var jobs []domain.JobDescriptor
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read task list row %d: %w", line, err)
		}

		jobs = append(jobs, domain.JobDescriptor{
			FaceImage:   strings.TrimSpace(record[index["face_image"]]),
			TargetImage: strings.TrimSpace(record[index["target_image"]]),
			Output:      strings.TrimSpace(record[index["output"]]),
		})
	}

	return jobs, nil
}
