package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"match-engine/internal/domain"
)

// readRecord lee un RawRecord en JSON. "-" lee de stdin.
func readRecord(path string) (domain.RawRecord, error) {
	var rec domain.RawRecord
	if err := decodeFile(path, &rec); err != nil {
		return domain.RawRecord{}, err
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return domain.RawRecord{}, fmt.Errorf("%s: user_id is required", path)
	}
	return rec, nil
}

// readPool acepta un array JSON de RawRecord.
func readPool(path string) ([]domain.RawRecord, error) {
	var pool []domain.RawRecord
	if err := decodeFile(path, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func decodeFile(path string, dst any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitIDs(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}
