package core

// Category is a fixed registry entry: a display color token and an icon glyph
// for one well-known activity kind.
type Category struct {
	Name  string
	Color string
	Icon  string
}

// Categories is the registry, in listing order. The first entry is the
// default selection on a new-activity form; the last ("Other") doubles as the
// fallback for names the registry does not know.
var Categories = []Category{
	{Name: "Work", Color: "hsl(220, 80%, 55%)", Icon: "💼"},
	{Name: "Study", Color: "hsl(280, 70%, 55%)", Icon: "📚"},
	{Name: "Sleep", Color: "hsl(240, 50%, 45%)", Icon: "😴"},
	{Name: "Exercise", Color: "hsl(150, 70%, 45%)", Icon: "🏃"},
	{Name: "Entertainment", Color: "hsl(340, 75%, 55%)", Icon: "🎮"},
	{Name: "Food", Color: "hsl(30, 85%, 50%)", Icon: "🍽️"},
	{Name: "Travel", Color: "hsl(190, 70%, 50%)", Icon: "🚗"},
	{Name: "Other", Color: "hsl(220, 10%, 55%)", Icon: "📌"},
}

// DefaultCategory is the pre-selected entry on a new-activity form.
func DefaultCategory() Category { return Categories[0] }

// FallbackCategory is the entry unknown names resolve to.
func FallbackCategory() Category { return Categories[len(Categories)-1] }

// CategoryByName looks a name up, falling back to Other. Total: never fails.
func CategoryByName(name string) Category {
	for _, c := range Categories {
		if c.Name == name {
			return c
		}
	}
	return FallbackCategory()
}

// ColorOf returns the display color for a category name.
func ColorOf(name string) string { return CategoryByName(name).Color }

// IconOf returns the icon glyph for a category name.
func IconOf(name string) string { return CategoryByName(name).Icon }

// KnownCategory reports whether the name is a registry entry (as opposed to
// one that would resolve through the fallback).
func KnownCategory(name string) bool {
	for _, c := range Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}
