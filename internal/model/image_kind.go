package model

import (
	"fmt"
	"strings"
)

// ImageKind follows the APIC picture type numbering, which FLAC
// picture blocks share.
type ImageKind uint8

const (
	KindOther ImageKind = iota
	KindIcon
	KindOtherIcon
	KindCoverFront
	KindCoverBack
	KindLeaflet
	KindMedia
	KindLeadArtist
	KindArtist
	KindConductor
	KindBand
	KindComposer
	KindLyricist
	KindRecordingLocation
	KindDuringRecording
	KindDuringPerformance
	KindScreenCapture
	KindBrightFish
	KindIllustration
	KindBandLogo
	KindPublisherLogo
)

var kindNames = [...]string{
	"other",
	"icon",
	"otherIcon",
	"coverFront",
	"coverBack",
	"leaflet",
	"media",
	"leadArtist",
	"artist",
	"conductor",
	"band",
	"composer",
	"lyricist",
	"recordingLocation",
	"duringRecording",
	"duringPerformance",
	"screenCapture",
	"brightFish",
	"illustration",
	"bandLogo",
	"publisherLogo",
}

func (k ImageKind) Valid() bool {
	return int(k) < len(kindNames)
}

func (k ImageKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", k)
	}
	return kindNames[k]
}

// ParseImageKind accepts the names produced by String, ignoring case.
func ParseImageKind(name string) (ImageKind, error) {
	for i, kindName := range kindNames {
		if strings.EqualFold(kindName, name) {
			return ImageKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown image kind %q", name)
}

func (k ImageKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid image kind %d", k)
	}
	return []byte(k.String()), nil
}

func (k *ImageKind) UnmarshalText(text []byte) error {
	kind, err := ParseImageKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
