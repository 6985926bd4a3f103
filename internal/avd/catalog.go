// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bufio"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// DeviceRecord is one hardware profile from `avdmanager list device`.
type DeviceRecord struct {
	ID    string `json:"id"`
	Alias string `json:"alias,omitempty"` // string id when avdmanager prints `id: 23 or "pixel_5"`
	Name  string `json:"name"`
}

// Identifier is every id form of the record, for substring matching.
func (d DeviceRecord) Identifier() string {
	if d.Alias == "" {
		return d.ID
	}
	return d.ID + " " + d.Alias
}

// ParseDeviceCatalog reads `avdmanager list device` output. An `id:` line starts a
// record and a later `name:` line names it; everything else is skipped.
func ParseDeviceCatalog(text string) []DeviceRecord {
	var out []DeviceRecord
	// current is false before the first id and after a malformed one, so a
	// stray name never lands on the previous record.
	current := false
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "id":
			if value == "" {
				current = false
				continue
			}
			id, alias := splitDeviceID(value)
			out = append(out, DeviceRecord{ID: id, Alias: alias})
			current = true
		case "name":
			if !current {
				continue
			}
			out[len(out)-1].Name = unquote(value)
		}
	}
	return out
}

// splitDeviceID turns `23 or "pixel_5"` into ("23", "pixel_5").
func splitDeviceID(value string) (string, string) {
	id, alias, ok := strings.Cut(value, " or ")
	if !ok {
		return unquote(value), ""
	}
	return unquote(strings.TrimSpace(id)), unquote(strings.TrimSpace(alias))
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ListDeviceCatalog runs `avdmanager list device` and parses it. An empty
// slice with a nil error means avdmanager knows no profiles; an error means
// the catalog could not be read at all.
func ListDeviceCatalog(env Env) ([]DeviceRecord, error) {
	ctx, span := startSpan(env, "avd.ListDeviceCatalog")
	defer span.End()
	env.Context = ctx
	avdmanager, err := env.Tools.Require(ToolAvdManager)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	res, err := run(env, []string{avdmanager, "list", "device"}, RunOptions{Check: true, Capture: true})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		recordSpanError(span, err)
		return nil, err
	}
	devices := ParseDeviceCatalog(string(res.Stdout))
	span.SetAttributes(attribute.Int("profiles", len(devices)))
	return devices, nil
}
