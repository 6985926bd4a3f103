// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"fmt"
	"strings"
)

// DeviceKind is the flavour of AVD to provision.
type DeviceKind string

const (
	KindSamsung DeviceKind = "samsung"
	KindPixel   DeviceKind = "pixel"
)

func ParseDeviceKind(s string) (DeviceKind, error) {
	switch DeviceKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSamsung:
		return KindSamsung, nil
	case KindPixel:
		return KindPixel, nil
	}
	return "", &InputError{Input: s, Reason: "expected samsung or pixel"}
}

// DefaultAVDName is the AVD name used when the caller does not pick one.
func (k DeviceKind) DefaultAVDName() string {
	switch k {
	case KindSamsung:
		return "Samsung_Device_AVD"
	case KindPixel:
		return "Pixel_Device_AVD"
	}
	return fmt.Sprintf("%s_Device_AVD", k)
}

// SelectProfile dispatches to the heuristic for kind.
func SelectProfile(kind DeviceKind, devices []DeviceRecord) string {
	if kind == KindSamsung {
		return SelectSamsungProfile(devices)
	}
	return SelectPixelProfile(devices)
}

var (
	samsungKeywords  = []string{"galaxy", "samsung", "large", "xlarge"}
	samsungFallbacks = []string{"pixel_6", "pixel_5", "Nexus 6", "Nexus 5X"}
)

// SelectSamsungProfile prefers a Samsung-like or large-screen profile and falls
// back to common Pixel/Nexus phones. It returns "" when nothing matches.
func SelectSamsungProfile(devices []DeviceRecord) string {
	for _, d := range devices {
		name := strings.ToLower(d.Name)
		for _, kw := range samsungKeywords {
			if strings.Contains(name, kw) {
				return d.ID
			}
		}
	}
	for _, fallback := range samsungFallbacks {
		fb := strings.ToLower(fallback)
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), fb) ||
				strings.Contains(strings.ToLower(d.Identifier()), fb) {
				return d.ID
			}
		}
	}
	return ""
}

// SelectPixelProfile returns the first Pixel profile, or "".
func SelectPixelProfile(devices []DeviceRecord) string {
	for _, d := range devices {
		ident := strings.ToLower(d.Identifier())
		if strings.Contains(strings.ToLower(d.Name), "pixel") ||
			strings.Contains(ident, "pixel_6") ||
			strings.Contains(ident, "pixel_3") {
			return d.ID
		}
	}
	return ""
}
