// Package filter implements the query predicate applied both to historical
// queries and live subscription matching.
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/kind"
	"github.com/lumenlabs/relayr/pkg/nostr/kinds"
	"github.com/lumenlabs/relayr/pkg/nostr/tag"
	"github.com/lumenlabs/relayr/pkg/nostr/timestamp"
	"github.com/tidwall/gjson"
)

// T is a query where any subset of the fields can be filled in. All present
// fields are ANDed, the values within a field are ORed, the empty filter
// matches everything.
//
// The JSON form unwraps the Tags map into the enclosing object as "#name"
// keys, which the stock encoding/json cannot express, hence the hand written
// codec below.
type T struct {
	IDs     tag.T         `json:"ids,omitempty"`
	Kinds   kinds.T       `json:"kinds,omitempty"`
	Authors tag.T         `json:"authors,omitempty"`
	Tags    TagMap        `json:"-"`
	Since   *timestamp.Tp `json:"since,omitempty"`
	Until   *timestamp.Tp `json:"until,omitempty"`
	Limit   *int          `json:"limit,omitempty"`
	Search  string        `json:"search,omitempty"`
}

// TagMap is the tag name to accepted values mapping of a filter. Keys are
// stored without the "#" prefix of their JSON form.
type TagMap map[string]tag.T

// Clone copies the map, nil begets nil.
func (t TagMap) Clone() (t1 TagMap) {
	if t == nil {
		return
	}
	t1 = make(TagMap)
	for i := range t {
		t1[i] = t[i].Clone()
	}
	return
}

// Matches is the live matching predicate: AND across present fields, OR
// within a field. IDs and Authors entries match as prefixes of the full hex
// value. Limit plays no part here, it only bounds historical queries.
func (f *T) Matches(ev *event.T) bool {
	if ev == nil {
		return false
	}
	if f.IDs != nil && !f.IDs.ContainsPrefix(ev.ID.String()) {
		return false
	}
	if f.Kinds != nil && !f.Kinds.Contains(ev.Kind) {
		return false
	}
	if f.Authors != nil && !f.Authors.ContainsPrefix(ev.PubKey) {
		return false
	}
	for name, values := range f.Tags {
		// an empty value set matches nothing, by convention
		if !ev.Tags.ContainsAny(name, values) {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt < f.Since.T() {
		return false
	}
	if f.Until != nil && ev.CreatedAt > f.Until.T() {
		return false
	}
	return true
}

func arePointerValuesEqual[V comparable](a *V, b *V) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil {
		return *a == *b
	}
	return false
}

// Equal compares two filters field by field.
func Equal(a, b *T) bool {
	switch {
	case !a.Kinds.Equals(b.Kinds),
		!a.IDs.Equals(b.IDs),
		!a.Authors.Equals(b.Authors),
		len(a.Tags) != len(b.Tags),
		!arePointerValuesEqual(a.Since, b.Since),
		!arePointerValuesEqual(a.Until, b.Until),
		!arePointerValuesEqual(a.Limit, b.Limit),
		a.Search != b.Search:
		return false
	}
	for name, av := range a.Tags {
		if bv, ok := b.Tags[name]; !ok {
			return false
		} else if !av.Equals(bv) {
			return false
		}
	}
	return true
}

// Clone deep copies the filter.
func (f *T) Clone() (clone *T) {
	clone = &T{
		IDs:     f.IDs.Clone(),
		Kinds:   f.Kinds.Clone(),
		Authors: f.Authors.Clone(),
		Tags:    f.Tags.Clone(),
		Since:   f.Since.Clone(),
		Until:   f.Until.Clone(),
		Search:  f.Search,
	}
	if f.Limit != nil {
		l := *f.Limit
		clone.Limit = &l
	}
	return
}

func (f *T) String() string {
	b, _ := f.MarshalJSON()
	return string(b)
}

// MarshalJSON writes the filter with the Tags unwrapped as "#name" keys,
// in a deterministic field order.
func (f *T) MarshalJSON() (b []byte, err error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	first := true
	field := func(name string, value any) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		fmt.Fprintf(buf, "%q:", name)
		v, _ := json.Marshal(value)
		buf.Write(v)
	}
	if f.IDs != nil {
		field("ids", f.IDs)
	}
	if f.Kinds != nil {
		field("kinds", f.Kinds.ToInts())
	}
	if f.Authors != nil {
		field("authors", f.Authors)
	}
	names := make([]string, 0, len(f.Tags))
	for name := range f.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field("#"+name, f.Tags[name])
	}
	if f.Since != nil {
		field("since", f.Since.T().I64())
	}
	if f.Until != nil {
		field("until", f.Until.T().I64())
	}
	if f.Limit != nil {
		field("limit", *f.Limit)
	}
	if f.Search != "" {
		field("search", f.Search)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON unpacks a JSON filter object, rolling up the "#name" keys
// into the Tags map.
func (f *T) UnmarshalJSON(b []byte) (err error) {
	if f == nil {
		return fmt.Errorf("cannot unmarshal into nil filter")
	}
	parsed := gjson.ParseBytes(b)
	if !parsed.IsObject() {
		return fmt.Errorf("filter is not a JSON object: %s", b)
	}
	parsed.ForEach(func(key, value gjson.Result) bool {
		switch {
		case key.Str == "ids":
			f.IDs = stringList(value)
		case key.Str == "authors":
			f.Authors = stringList(value)
		case key.Str == "kinds":
			f.Kinds = make(kinds.T, 0, len(value.Array()))
			for _, k := range value.Array() {
				if k.Int() < 0 || k.Int() > 65535 {
					err = fmt.Errorf("kind out of range: %d", k.Int())
					return false
				}
				f.Kinds = append(f.Kinds, kind.T(k.Int()))
			}
		case key.Str == "since":
			f.Since = timestamp.FromUnix(value.Int()).Ptr()
		case key.Str == "until":
			f.Until = timestamp.FromUnix(value.Int()).Ptr()
		case key.Str == "limit":
			l := int(value.Int())
			f.Limit = &l
		case key.Str == "search":
			f.Search = value.Str
		case len(key.Str) > 1 && key.Str[0] == '#':
			if f.Tags == nil {
				f.Tags = make(TagMap)
			}
			f.Tags[key.Str[1:]] = stringList(value)
		default:
			// unknown fields are ignored for forward compatibility
		}
		return true
	})
	if err != nil {
		return
	}
	// a negative limit is nonsense and invalidates the filter
	if f.Limit != nil && *f.Limit < 0 {
		return fmt.Errorf("filter limit is negative: %d", *f.Limit)
	}
	return
}

func stringList(value gjson.Result) (t tag.T) {
	arr := value.Array()
	t = make(tag.T, 0, len(arr))
	for i := range arr {
		t = append(t, arr[i].Str)
	}
	return
}

// LimitOr returns the filter limit, or the given default when absent.
func (f *T) LimitOr(def int) int {
	if f.Limit == nil {
		return def
	}
	return *f.Limit
}
