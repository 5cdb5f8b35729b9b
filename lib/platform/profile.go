// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform holds per-machine track layout profiles and the
// structural track classifier built on them.
//
// A Profile records what a correctly formatted track looks like for
// one machine and density: the expected length window, sector count
// and size, the sync marks its formats and protections use, and the
// data rate. Classify measures a raw track read against a profile,
// or against every known sync mark when no profile is given, and
// reports the track's structural type, sector layout, write splice
// point, and any recognized protection scheme.
package platform

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/track"
)

// SyncWord is a 16-bit sync mark pattern. In profile files it reads
// from hex strings ("0x4489") or decimal strings.
type SyncWord uint16

// String formats the word as a 0x-prefixed hex literal.
func (w SyncWord) String() string {
	return fmt.Sprintf("%#06x", uint16(w))
}

// MarshalText implements encoding.TextMarshaler.
func (w SyncWord) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *SyncWord) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 0, 16)
	if err != nil {
		return fmt.Errorf("platform: bad sync word %q: %w", text, err)
	}
	*w = SyncWord(v)
	return nil
}

// Platform identifies the machine family a track layout belongs to.
type Platform uint8

const (
	PlatformUnknown Platform = iota
	PlatformAmiga
	PlatformAtariST
	PlatformIBMPC
	PlatformAppleII
	PlatformC64
	PlatformBBCMicro
	PlatformMSX
	PlatformAmstradCPC
)

// String returns the display name of the platform.
func (p Platform) String() string {
	switch p {
	case PlatformAmiga:
		return "Amiga"
	case PlatformAtariST:
		return "Atari ST"
	case PlatformIBMPC:
		return "IBM PC"
	case PlatformAppleII:
		return "Apple II"
	case PlatformC64:
		return "Commodore 64"
	case PlatformBBCMicro:
		return "BBC Micro"
	case PlatformMSX:
		return "MSX"
	case PlatformAmstradCPC:
		return "Amstrad CPC"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler using the machine
// token form ("amiga", "atari-st") used in profile files.
func (p Platform) MarshalText() ([]byte, error) {
	switch p {
	case PlatformAmiga:
		return []byte("amiga"), nil
	case PlatformAtariST:
		return []byte("atari-st"), nil
	case PlatformIBMPC:
		return []byte("ibm-pc"), nil
	case PlatformAppleII:
		return []byte("apple-ii"), nil
	case PlatformC64:
		return []byte("c64"), nil
	case PlatformBBCMicro:
		return []byte("bbc-micro"), nil
	case PlatformMSX:
		return []byte("msx"), nil
	case PlatformAmstradCPC:
		return []byte("amstrad-cpc"), nil
	default:
		return []byte("unknown"), nil
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Platform) UnmarshalText(text []byte) error {
	switch string(text) {
	case "amiga":
		*p = PlatformAmiga
	case "atari-st":
		*p = PlatformAtariST
	case "ibm-pc":
		*p = PlatformIBMPC
	case "apple-ii":
		*p = PlatformAppleII
	case "c64":
		*p = PlatformC64
	case "bbc-micro":
		*p = PlatformBBCMicro
	case "msx":
		*p = PlatformMSX
	case "amstrad-cpc":
		*p = PlatformAmstradCPC
	case "unknown":
		*p = PlatformUnknown
	default:
		return fmt.Errorf("platform: unknown platform %q", text)
	}
	return nil
}

// Profile describes the expected track layout for one platform and
// density. The first sync pattern is the standard format mark; later
// entries are alternates and protection marks seen on that platform.
type Profile struct {
	Name     string        `json:"name"`
	Platform Platform      `json:"platform"`
	Encoding flux.Encoding `json:"encoding"`

	SyncPatterns []SyncWord `json:"sync_patterns"`

	// Schemes names the protection scheme a non-standard sync mark
	// belongs to. Builtin profiles leave this nil and rely on the
	// shared table; profile files may add their own entries.
	Schemes map[SyncWord]string `json:"schemes,omitempty"`

	// Track length window in decoded bytes. Reads outside
	// [TrackLengthMin, TrackLengthMax] do not match the profile;
	// reads at or past LongTrackThreshold are long-track
	// protections.
	TrackLengthMin     int `json:"track_length_min"`
	TrackLengthMax     int `json:"track_length_max"`
	TrackLengthNominal int `json:"track_length_nominal"`
	LongTrackThreshold int `json:"long_track_threshold"`

	SectorsPerTrack int `json:"sectors_per_track"`
	SectorSize      int `json:"sector_size"`

	// SectorRawSize is the encoded on-disk size of one sector
	// including its header and sync lead-in.
	SectorRawSize int `json:"sector_raw_size"`

	// SectorTolerance is how far apart two sync-to-sync spans can be
	// and still count as the same sector size.
	SectorTolerance int `json:"sector_tolerance"`

	DataRateKbps float64 `json:"data_rate_kbps"`
	RPM          float64 `json:"rpm"`
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	if len(p.SyncPatterns) == 0 {
		return fmt.Errorf("profile %q has no sync patterns", p.Name)
	}
	if p.TrackLengthMin <= 0 || p.TrackLengthMax < p.TrackLengthMin {
		return fmt.Errorf("profile %q: bad track length window %d..%d", p.Name, p.TrackLengthMin, p.TrackLengthMax)
	}
	if p.TrackLengthNominal < p.TrackLengthMin || p.TrackLengthNominal > p.TrackLengthMax {
		return fmt.Errorf("profile %q: nominal length %d outside window %d..%d", p.Name, p.TrackLengthNominal, p.TrackLengthMin, p.TrackLengthMax)
	}
	if p.LongTrackThreshold <= 0 {
		return fmt.Errorf("profile %q: long track threshold must be positive", p.Name)
	}
	if p.SectorsPerTrack <= 0 || p.SectorSize <= 0 {
		return fmt.Errorf("profile %q: bad sector layout %dx%d", p.Name, p.SectorsPerTrack, p.SectorSize)
	}
	if p.SectorTolerance < 0 {
		return fmt.Errorf("profile %q: negative sector tolerance", p.Name)
	}
	if p.DataRateKbps <= 0 || p.RPM <= 0 {
		return fmt.Errorf("profile %q: bad data rate or speed", p.Name)
	}
	return nil
}

var (
	amigaSyncs = []SyncWord{0x4489, 0x9521, 0xA245, 0xA89A, 0x448A, 0xF8BC}
	ibmSyncs   = []SyncWord{0x4489}
	atariSyncs = []SyncWord{0x4489, 0xA1A1, 0x4E4E}
	appleSyncs = []SyncWord{0xD5AA, 0x96AD}
	c64Syncs   = []SyncWord{0x52FF, 0xFF52}
)

// builtinProfiles is the known-platform table. Values come from
// measured nominal geometries: an Amiga DD track decodes to 12668
// bytes at 300 RPM, anything at or past 13056 was mastered long.
var builtinProfiles = []Profile{
	{
		Name:               "Amiga DD",
		Platform:           PlatformAmiga,
		Encoding:           flux.MFM,
		SyncPatterns:       amigaSyncs,
		TrackLengthMin:     11000,
		TrackLengthMax:     14000,
		TrackLengthNominal: 12668,
		LongTrackThreshold: 13056,
		SectorsPerTrack:    11,
		SectorSize:         512,
		SectorRawSize:      1088,
		SectorTolerance:    32,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		Name:               "Amiga HD",
		Platform:           PlatformAmiga,
		Encoding:           flux.MFM,
		SyncPatterns:       amigaSyncs,
		TrackLengthMin:     22000,
		TrackLengthMax:     28000,
		TrackLengthNominal: 25336,
		LongTrackThreshold: 26112,
		SectorsPerTrack:    22,
		SectorSize:         512,
		SectorRawSize:      1088,
		SectorTolerance:    32,
		DataRateKbps:       500,
		RPM:                300,
	},
	{
		Name:               "Atari ST DD",
		Platform:           PlatformAtariST,
		Encoding:           flux.MFM,
		SyncPatterns:       atariSyncs,
		TrackLengthMin:     6000,
		TrackLengthMax:     7000,
		TrackLengthNominal: 6250,
		LongTrackThreshold: 6500,
		SectorsPerTrack:    9,
		SectorSize:         512,
		SectorRawSize:      640,
		SectorTolerance:    32,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		Name:               "Atari ST HD",
		Platform:           PlatformAtariST,
		Encoding:           flux.MFM,
		SyncPatterns:       atariSyncs,
		TrackLengthMin:     12000,
		TrackLengthMax:     14000,
		TrackLengthNominal: 12500,
		LongTrackThreshold: 13000,
		SectorsPerTrack:    18,
		SectorSize:         512,
		SectorRawSize:      640,
		SectorTolerance:    32,
		DataRateKbps:       500,
		RPM:                300,
	},
	{
		Name:               "IBM PC DD",
		Platform:           PlatformIBMPC,
		Encoding:           flux.MFM,
		SyncPatterns:       ibmSyncs,
		TrackLengthMin:     6000,
		TrackLengthMax:     7000,
		TrackLengthNominal: 6250,
		LongTrackThreshold: 6500,
		SectorsPerTrack:    9,
		SectorSize:         512,
		SectorRawSize:      640,
		SectorTolerance:    32,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		Name:               "IBM PC HD",
		Platform:           PlatformIBMPC,
		Encoding:           flux.MFM,
		SyncPatterns:       ibmSyncs,
		TrackLengthMin:     12000,
		TrackLengthMax:     14000,
		TrackLengthNominal: 12500,
		LongTrackThreshold: 13000,
		SectorsPerTrack:    18,
		SectorSize:         512,
		SectorRawSize:      640,
		SectorTolerance:    32,
		DataRateKbps:       500,
		RPM:                300,
	},
	{
		Name:               "Apple DOS 3.3",
		Platform:           PlatformAppleII,
		Encoding:           flux.GCR,
		SyncPatterns:       appleSyncs,
		TrackLengthMin:     6200,
		TrackLengthMax:     6800,
		TrackLengthNominal: 6392,
		LongTrackThreshold: 6600,
		SectorsPerTrack:    16,
		SectorSize:         256,
		SectorRawSize:      400,
		SectorTolerance:    16,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		Name:               "Apple ProDOS",
		Platform:           PlatformAppleII,
		Encoding:           flux.GCR,
		SyncPatterns:       appleSyncs,
		TrackLengthMin:     6200,
		TrackLengthMax:     6800,
		TrackLengthNominal: 6392,
		LongTrackThreshold: 6600,
		SectorsPerTrack:    16,
		SectorSize:         256,
		SectorRawSize:      400,
		SectorTolerance:    16,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		// Sectors per track varies by speed zone; 21 is the outer
		// zone where protections concentrate.
		Name:               "Commodore 64",
		Platform:           PlatformC64,
		Encoding:           flux.GCR,
		SyncPatterns:       c64Syncs,
		TrackLengthMin:     7600,
		TrackLengthMax:     8400,
		TrackLengthNominal: 7928,
		LongTrackThreshold: 8200,
		SectorsPerTrack:    21,
		SectorSize:         256,
		SectorRawSize:      360,
		SectorTolerance:    16,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		Name:               "BBC DFS",
		Platform:           PlatformBBCMicro,
		Encoding:           flux.FM,
		SyncPatterns:       ibmSyncs,
		TrackLengthMin:     3100,
		TrackLengthMax:     3300,
		TrackLengthNominal: 3125,
		LongTrackThreshold: 3200,
		SectorsPerTrack:    10,
		SectorSize:         256,
		SectorRawSize:      320,
		SectorTolerance:    16,
		DataRateKbps:       125,
		RPM:                300,
	},
	{
		Name:               "BBC ADFS",
		Platform:           PlatformBBCMicro,
		Encoding:           flux.MFM,
		SyncPatterns:       ibmSyncs,
		TrackLengthMin:     6200,
		TrackLengthMax:     6400,
		TrackLengthNominal: 6250,
		LongTrackThreshold: 6350,
		SectorsPerTrack:    16,
		SectorSize:         256,
		SectorRawSize:      390,
		SectorTolerance:    16,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		Name:               "MSX",
		Platform:           PlatformMSX,
		Encoding:           flux.MFM,
		SyncPatterns:       ibmSyncs,
		TrackLengthMin:     6000,
		TrackLengthMax:     7000,
		TrackLengthNominal: 6250,
		LongTrackThreshold: 6500,
		SectorsPerTrack:    9,
		SectorSize:         512,
		SectorRawSize:      640,
		SectorTolerance:    32,
		DataRateKbps:       250,
		RPM:                300,
	},
	{
		Name:               "Amstrad CPC",
		Platform:           PlatformAmstradCPC,
		Encoding:           flux.MFM,
		SyncPatterns:       ibmSyncs,
		TrackLengthMin:     6000,
		TrackLengthMax:     7000,
		TrackLengthNominal: 6250,
		LongTrackThreshold: 6500,
		SectorsPerTrack:    9,
		SectorSize:         512,
		SectorRawSize:      640,
		SectorTolerance:    32,
		DataRateKbps:       250,
		RPM:                300,
	},
}

// canonicalProfile names the default profile for each platform, used
// when a track's platform was detected but no profile was given.
var canonicalProfile = map[Platform]string{
	PlatformAmiga:      "Amiga DD",
	PlatformAtariST:    "Atari ST DD",
	PlatformIBMPC:      "IBM PC DD",
	PlatformAppleII:    "Apple DOS 3.3",
	PlatformC64:        "Commodore 64",
	PlatformBBCMicro:   "BBC ADFS",
	PlatformMSX:        "MSX",
	PlatformAmstradCPC: "Amstrad CPC",
}

func builtinForPlatform(p Platform) *Profile {
	name, ok := canonicalProfile[p]
	if !ok {
		return nil
	}
	for i := range builtinProfiles {
		if builtinProfiles[i].Name == name {
			return &builtinProfiles[i]
		}
	}
	return nil
}

// schemeNames maps protection sync marks to the schemes known to use
// them. The marks are Amiga-specific but the lookup is global: a
// track found carrying one of these names its scheme no matter which
// profile drove the search.
var schemeNames = map[SyncWord]string{
	0x9521: "Arkanoid Protection",
	0xA245: "Ocean/Imagine Protection",
	0xA89A: "Novagen Protection",
	0xF8BC: "Index Copy Protection",
}

// SchemeForSync names the protection scheme a sync mark belongs to.
// Profile-local schemes take precedence; a nil profile consults only
// the shared table.
func SchemeForSync(p *Profile, pattern uint16) (string, bool) {
	if p != nil {
		if name, ok := p.Schemes[SyncWord(pattern)]; ok {
			return name, true
		}
	}
	name, ok := schemeNames[SyncWord(pattern)]
	return name, ok
}

// Set is an ordered profile collection: the builtin table, with any
// loaded override files merged over it by name.
type Set struct {
	profiles []Profile
}

// Builtin returns a Set holding the builtin profile table.
func Builtin() *Set {
	s := &Set{profiles: make([]Profile, len(builtinProfiles))}
	copy(s.profiles, builtinProfiles)
	for i := range s.profiles {
		patterns := make([]SyncWord, len(s.profiles[i].SyncPatterns))
		copy(patterns, s.profiles[i].SyncPatterns)
		s.profiles[i].SyncPatterns = patterns
	}
	return s
}

// Profiles returns the profiles in order, builtins first.
func (s *Set) Profiles() []Profile {
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Lookup finds a profile by name, ignoring case.
func (s *Set) Lookup(name string) (Profile, bool) {
	for _, p := range s.profiles {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// ForPlatform returns the canonical profile for a platform.
func (s *Set) ForPlatform(p Platform) (Profile, bool) {
	name, ok := canonicalProfile[p]
	if !ok {
		return Profile{}, false
	}
	return s.Lookup(name)
}

// Detect picks the profile whose track length window contains the
// measured length, preferring the closest nominal length. Profiles
// with a different encoding are skipped.
func (s *Set) Detect(m track.Measurement, encoding flux.Encoding) (Profile, bool) {
	var best Profile
	bestDist := -1
	for _, p := range s.profiles {
		if p.Encoding != encoding {
			continue
		}
		if m.LengthBytes < p.TrackLengthMin || m.LengthBytes > p.TrackLengthMax {
			continue
		}
		dist := m.LengthBytes - p.TrackLengthNominal
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = p
			bestDist = dist
		}
	}
	return best, bestDist >= 0
}

// Load reads a JSONC profile file and merges its profiles over the
// set by name. The file holds an array of profile objects; JSONC
// comments are allowed. Nothing is merged if any profile in the file
// fails validation.
func (s *Set) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("platform: read profiles: %w", err)
	}
	var loaded []Profile
	if err := json.Unmarshal(jsonc.ToJSON(data), &loaded); err != nil {
		return fmt.Errorf("platform: parse %s: %w", path, err)
	}
	for i := range loaded {
		if err := loaded[i].validate(); err != nil {
			return fmt.Errorf("platform: %s: %w", path, err)
		}
	}
	for _, p := range loaded {
		replaced := false
		for i := range s.profiles {
			if strings.EqualFold(s.profiles[i].Name, p.Name) {
				s.profiles[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			s.profiles = append(s.profiles, p)
		}
	}
	return nil
}
