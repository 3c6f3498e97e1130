package model

const DefaultSeparator = ", "

// Separators configures how multi-valued fields are stored per format.
// A nil ID3 separator means DefaultSeparator. A nil Vorbis separator keeps
// the native one-entry-per-value layout.
type Separators struct {
	ID3    *string
	Vorbis *string
	MP4    string
}

func DefaultSeparators() Separators {
	return Separators{MP4: DefaultSeparator}
}

// Options is passed explicitly to every open and save call.
type Options struct {
	Separators Separators
	// ID3v24 selects ID3v2.4 (UTF-8) over ID3v2.3 when saving mp3 files.
	ID3v24 bool
	// ID3Latin1 restricts ID3v2.3 text to ISO-8859-1; text outside it
	// fails with an EncodingError instead of falling back to UTF-16.
	ID3Latin1 bool
	// Verify re-reads the written temp file before it replaces the original.
	Verify bool
}

func DefaultOptions() Options {
	return Options{
		Separators: DefaultSeparators(),
		ID3v24:     true,
	}
}

// StringPtr is a helper for building Separators literals.
func StringPtr(s string) *string {
	return &s
}
