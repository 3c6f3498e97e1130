// Package vorbis edits Vorbis comments and picture blocks, the tag layout
// shared by FLAC and Ogg files.
package vorbis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/separator"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// Comments is an editable comment header. Entries keep their file order.
type Comments struct {
	block *flacvorbis.MetaDataBlockVorbisComment
}

func NewComments(vendor string) *Comments {
	block := flacvorbis.New()
	block.Vendor = vendor
	return &Comments{block: block}
}

// ParseComments decodes a comment header body: the vendor string, the
// entry count and the length-prefixed entries.
func ParseComments(data []byte) (*Comments, error) {
	block, err := flacvorbis.ParseFromMetaDataBlock(flac.MetaDataBlock{Type: flac.VorbisComment, Data: data})
	if err != nil {
		return nil, err
	}
	return &Comments{block: block}, nil
}

// Clone returns an independent copy.
func (c *Comments) Clone() *Comments {
	block := *c.block
	block.Comments = append([]string(nil), c.block.Comments...)
	return &Comments{block: &block}
}

func (c *Comments) Vendor() string {
	return c.block.Vendor
}

func (c *Comments) Entries() []string {
	return c.block.Comments
}

// Bytes encodes the comment header body.
func (c *Comments) Bytes() []byte {
	return c.block.Marshal().Data
}

// Block encodes the comments as a FLAC metadata block.
func (c *Comments) Block() *flac.MetaDataBlock {
	block := c.block.Marshal()
	return &block
}

func split(entry string) (field, value string, ok bool) {
	field, value, ok = strings.Cut(entry, "=")
	if !ok || !tagkey.ValidVorbisField(field) {
		return "", "", false
	}
	return field, value, true
}

// Decode adds every comment to track. Malformed entries are skipped with
// a warning and picture comments are listed as opaque.
func (c *Comments) Decode(track *model.Track, policy separator.Policy) {
	entries := map[string][]string{}
	var order []string
	for _, entry := range c.block.Comments {
		field, value, ok := split(entry)
		if !ok {
			track.Warn("vorbis", fmt.Sprintf("skipped malformed comment %q", truncate(entry)))
			continue
		}
		if strings.EqualFold(field, tagkey.PictureField) {
			track.AddOpaque(tagkey.PictureField)
			continue
		}
		key := tagkey.VorbisDecode(field)
		if _, seen := entries[key]; !seen {
			order = append(order, key)
		}
		entries[key] = append(entries[key], value)
	}
	for _, key := range order {
		if values := policy.Decode(entries[key]); len(values) > 0 {
			track.Tags[key] = append(track.Tags[key], values...)
		}
	}
}

func truncate(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Remove deletes every entry a folded key may occupy.
func (c *Comments) Remove(key string) {
	natives := tagkey.VorbisNatives(key)
	c.filter(func(field string) bool {
		for _, native := range natives {
			if strings.EqualFold(field, native) {
				return true
			}
		}
		return false
	})
}

// Set replaces a folded key with entries. No entries removes it.
func (c *Comments) Set(key string, entries []string) error {
	field := tagkey.VorbisWrite(key)
	if !tagkey.ValidVorbisField(field) || strings.EqualFold(field, tagkey.PictureField) {
		return &model.UnknownTagKeyError{Key: key, Reason: fmt.Sprintf("%q is not a valid comment field", field)}
	}
	for _, entry := range entries {
		if !utf8.ValidString(entry) {
			return &model.EncodingError{Key: key, Reason: "value is not valid UTF-8"}
		}
	}

	c.Remove(key)
	for _, entry := range entries {
		if err := c.block.Add(field, entry); err != nil {
			return &model.UnknownTagKeyError{Key: key, Reason: err.Error()}
		}
	}
	return nil
}

// PictureEntries removes the base64 picture comments and returns their
// values.
func (c *Comments) PictureEntries() []string {
	var values []string
	kept := c.block.Comments[:0]
	for _, entry := range c.block.Comments {
		field, value, ok := split(entry)
		if ok && strings.EqualFold(field, tagkey.PictureField) {
			values = append(values, value)
			continue
		}
		kept = append(kept, entry)
	}
	c.block.Comments = kept
	return values
}

// AddPictureEntry appends a base64 picture comment.
func (c *Comments) AddPictureEntry(value string) {
	c.block.Comments = append(c.block.Comments, tagkey.PictureField+"="+value)
}

func (c *Comments) filter(drop func(field string) bool) {
	kept := c.block.Comments[:0]
	for _, entry := range c.block.Comments {
		if field, _, ok := split(entry); ok && drop(field) {
			continue
		}
		kept = append(kept, entry)
	}
	c.block.Comments = kept
}
