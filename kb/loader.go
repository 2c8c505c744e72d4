package kb

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"autombs-backend/models"
)

// LoadJSONL reads a knowledge base file with one JSON item per line.
// Blank lines are skipped; a malformed line is an error.
func LoadJSONL(path string) ([]models.KBItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open KB file: %w", err)
	}
	defer f.Close()

	var items []models.KBItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var item models.KBItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to parse KB line %d: %w", line, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read KB file: %w", err)
	}

	return items, nil
}
