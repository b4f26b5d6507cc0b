package library

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPredicate is returned when a predicate cannot be compiled.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Predicate is a node of a typed filter expression over media records.
// Predicates compile to a parameterised WHERE clause; values never reach
// the SQL text.
type Predicate interface {
	compile(b *whereBuilder) error
}

// ArrayField names a multi-valued attribute derived from asset details.
type ArrayField string

const (
	FieldAudioLanguage    ArrayField = "audio_languages"
	FieldSubtitleLanguage ArrayField = "subtitle_languages"
	FieldResolution       ArrayField = "resolution"
	FieldSourceLibrary    ArrayField = "source_library_id"
	FieldReleaseGroup     ArrayField = "release_group"
)

// NumberField names a numeric attribute.
type NumberField string

const (
	FieldRating        NumberField = "rating"
	FieldReleaseYear   NumberField = "release_year"
	FieldTotalEpisodes NumberField = "total_episodes"
)

// TextField names a textual attribute.
type TextField string

const (
	FieldTitle          TextField = "title"
	FieldOriginalTitle  TextField = "original_title"
	FieldOverview       TextField = "overview"
	FieldCustomRating   TextField = "custom_rating"
	FieldWatchingStatus TextField = "watching_status"
	FieldItemType       TextField = "item_type"
)

// TextMode selects how a TextMatch compares.
type TextMode int

const (
	TextEquals TextMode = iota
	TextContains
	TextPrefix
)

// ArrayContains matches records whose assets carry any (or, with All,
// every) of Values for Field.
type ArrayContains struct {
	Field  ArrayField
	Values []string
	All    bool
}

// NumberRange matches records with Min <= Field <= Max; nil bounds are open.
type NumberRange struct {
	Field NumberField
	Min   *float64
	Max   *float64
}

// TextMatch matches a textual field, case-insensitively for Contains and Prefix.
type TextMatch struct {
	Field TextField
	Value string
	Mode  TextMode
}

// OfficialRatingIs matches records whose certification for Country is one of Values.
type OfficialRatingIs struct {
	Country string
	Values  []string
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

// Or matches when any child matches. An empty Or matches nothing.
type Or []Predicate

// Not negates its child.
type Not struct{ P Predicate }

type whereBuilder struct {
	sql  strings.Builder
	args []any
}

// CompilePredicate renders p as a SQL boolean expression with placeholders.
func CompilePredicate(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}
	b := &whereBuilder{}
	if err := p.compile(b); err != nil {
		return "", nil, err
	}
	return b.sql.String(), b.args, nil
}

func (b *whereBuilder) placeholders(values []string) string {
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = "?"
		b.args = append(b.args, v)
	}
	return strings.Join(marks, ", ")
}

func (p ArrayContains) compile(b *whereBuilder) error {
	if len(p.Values) == 0 {
		return fmt.Errorf("%w: %s has no values", ErrInvalidPredicate, p.Field)
	}
	var source string
	switch p.Field {
	case FieldAudioLanguage, FieldSubtitleLanguage:
		source = fmt.Sprintf(
			"json_each(media_metadata.asset_details_json) AS a, json_each(a.value, '$.%s') AS v", p.Field)
	case FieldResolution, FieldSourceLibrary, FieldReleaseGroup:
		source = fmt.Sprintf(
			"(SELECT json_extract(a.value, '$.%s') AS value FROM json_each(media_metadata.asset_details_json) AS a) AS v", p.Field)
	default:
		return fmt.Errorf("%w: unknown array field %q", ErrInvalidPredicate, p.Field)
	}

	if !p.All {
		b.sql.WriteString("EXISTS (SELECT 1 FROM " + source + " WHERE v.value IN (" + b.placeholders(p.Values) + "))")
		return nil
	}
	b.sql.WriteString("(")
	for i, v := range p.Values {
		if i > 0 {
			b.sql.WriteString(" AND ")
		}
		b.sql.WriteString("EXISTS (SELECT 1 FROM " + source + " WHERE v.value = ?)")
		b.args = append(b.args, v)
	}
	b.sql.WriteString(")")
	return nil
}

func (p NumberRange) compile(b *whereBuilder) error {
	var expr string
	switch p.Field {
	case FieldRating:
		expr = "rating"
	case FieldTotalEpisodes:
		expr = "total_episodes"
	case FieldReleaseYear:
		expr = "CAST(substr(release_date, 1, 4) AS INTEGER)"
	default:
		return fmt.Errorf("%w: unknown number field %q", ErrInvalidPredicate, p.Field)
	}
	if p.Min == nil && p.Max == nil {
		return fmt.Errorf("%w: %s range has no bounds", ErrInvalidPredicate, p.Field)
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		return fmt.Errorf("%w: %s range min %v > max %v", ErrInvalidPredicate, p.Field, *p.Min, *p.Max)
	}
	var parts []string
	if p.Min != nil {
		parts = append(parts, expr+" >= ?")
		b.args = append(b.args, *p.Min)
	}
	if p.Max != nil {
		parts = append(parts, expr+" <= ?")
		b.args = append(b.args, *p.Max)
	}
	b.sql.WriteString("(" + strings.Join(parts, " AND ") + ")")
	return nil
}

func (p TextMatch) compile(b *whereBuilder) error {
	switch p.Field {
	case FieldTitle, FieldOriginalTitle, FieldOverview, FieldCustomRating, FieldWatchingStatus, FieldItemType:
	default:
		return fmt.Errorf("%w: unknown text field %q", ErrInvalidPredicate, p.Field)
	}
	col := string(p.Field)
	switch p.Mode {
	case TextEquals:
		b.sql.WriteString(col + " = ?")
		b.args = append(b.args, p.Value)
	case TextContains:
		b.sql.WriteString(col + ` LIKE ? ESCAPE '\'`)
		b.args = append(b.args, "%"+escapeLike(p.Value)+"%")
	case TextPrefix:
		b.sql.WriteString(col + ` LIKE ? ESCAPE '\'`)
		b.args = append(b.args, escapeLike(p.Value)+"%")
	default:
		return fmt.Errorf("%w: unknown text mode %d", ErrInvalidPredicate, p.Mode)
	}
	return nil
}

func (p OfficialRatingIs) compile(b *whereBuilder) error {
	if p.Country == "" || len(p.Values) == 0 {
		return fmt.Errorf("%w: official rating needs a country and values", ErrInvalidPredicate)
	}
	b.sql.WriteString("json_extract(official_rating_json, ?) IN (")
	b.args = append(b.args, `$."`+strings.ReplaceAll(p.Country, `"`, ``)+`"`)
	b.sql.WriteString(b.placeholders(p.Values) + ")")
	return nil
}

func (p And) compile(b *whereBuilder) error {
	return compileGroup(b, []Predicate(p), " AND ", "1 = 1")
}

func (p Or) compile(b *whereBuilder) error {
	return compileGroup(b, []Predicate(p), " OR ", "1 = 0")
}

func (p Not) compile(b *whereBuilder) error {
	if p.P == nil {
		return fmt.Errorf("%w: empty NOT", ErrInvalidPredicate)
	}
	b.sql.WriteString("NOT (")
	if err := p.P.compile(b); err != nil {
		return err
	}
	b.sql.WriteString(")")
	return nil
}

func compileGroup(b *whereBuilder, children []Predicate, op, empty string) error {
	if len(children) == 0 {
		b.sql.WriteString(empty)
		return nil
	}
	b.sql.WriteString("(")
	for i, c := range children {
		if i > 0 {
			b.sql.WriteString(op)
		}
		if c == nil {
			return fmt.Errorf("%w: nil child", ErrInvalidPredicate)
		}
		if err := c.compile(b); err != nil {
			return err
		}
	}
	b.sql.WriteString(")")
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Query returns records matching the predicate, ordered by title.
func (s *Store) Query(p Predicate, limit, offset int) ([]*Record, int, error) {
	where, args, err := CompilePredicate(p)
	if err != nil {
		return nil, 0, err
	}
	return queryRecords(s.db, "WHERE "+where, args, "ORDER BY title, id", limit, offset)
}
