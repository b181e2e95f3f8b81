// Package pack implements the resource pack and data pack containers that
// builds read from and write to. A pack is a set of namespaced files grouped
// by artifact kind, addressable by "namespace:path" keys, and serializable to
// a directory tree or a zip archive.
package pack

import "sort"

// Category separates the two pack flavors. Every artifact kind belongs to
// exactly one category, which determines the pack a file may be stored in.
type Category string

const (
	CategoryData   Category = "data"
	CategoryAssets Category = "assets"
)

// Kind identifies an artifact kind. It is a distinct named type on purpose:
// generator scopes carry kinds as opaque non-string segments, so kinds keep
// increment counters apart without leaking into generated path prefixes.
type Kind string

const (
	// Data pack kinds
	KindFunction    Kind = "function"
	KindAdvancement Kind = "advancement"
	KindLootTable   Kind = "loot_table"
	KindRecipe      Kind = "recipe"
	KindPredicate   Kind = "predicate"
	KindFunctionTag Kind = "function_tag"
	KindBlockTag    Kind = "block_tag"

	// Resource pack kinds
	KindModel      Kind = "model"
	KindBlockstate Kind = "blockstate"
	KindLanguage   Kind = "language"
	KindTexture    Kind = "texture"
	KindText       Kind = "text"
)

// KindSpec describes where files of a kind live inside a namespace and how
// they are parsed back from disk.
type KindSpec struct {
	Category  Category
	Directory string // path under the namespace directory
	Extension string
	Parse     func(data []byte) (File, error)
}

var kindSpecs = map[Kind]KindSpec{
	KindFunction: {
		Category:  CategoryData,
		Directory: "functions",
		Extension: ".mcfunction",
		Parse:     parseFunction,
	},
	KindAdvancement: {
		Category:  CategoryData,
		Directory: "advancements",
		Extension: ".json",
		Parse:     jsonParser(KindAdvancement),
	},
	KindLootTable: {
		Category:  CategoryData,
		Directory: "loot_tables",
		Extension: ".json",
		Parse:     jsonParser(KindLootTable),
	},
	KindRecipe: {
		Category:  CategoryData,
		Directory: "recipes",
		Extension: ".json",
		Parse:     jsonParser(KindRecipe),
	},
	KindPredicate: {
		Category:  CategoryData,
		Directory: "predicates",
		Extension: ".json",
		Parse:     jsonParser(KindPredicate),
	},
	KindFunctionTag: {
		Category:  CategoryData,
		Directory: "tags/functions",
		Extension: ".json",
		Parse:     tagParser(KindFunctionTag),
	},
	KindBlockTag: {
		Category:  CategoryData,
		Directory: "tags/blocks",
		Extension: ".json",
		Parse:     tagParser(KindBlockTag),
	},
	KindModel: {
		Category:  CategoryAssets,
		Directory: "models",
		Extension: ".json",
		Parse:     jsonParser(KindModel),
	},
	KindBlockstate: {
		Category:  CategoryAssets,
		Directory: "blockstates",
		Extension: ".json",
		Parse:     jsonParser(KindBlockstate),
	},
	KindLanguage: {
		Category:  CategoryAssets,
		Directory: "lang",
		Extension: ".json",
		Parse:     parseLanguage,
	},
	KindTexture: {
		Category:  CategoryAssets,
		Directory: "textures",
		Extension: ".png",
		Parse:     parseTexture,
	},
	KindText: {
		Category:  CategoryAssets,
		Directory: "texts",
		Extension: ".txt",
		Parse:     parseText,
	},
}

// Spec returns the kind's descriptor. Unknown kinds return a zero spec.
func (k Kind) Spec() KindSpec { return kindSpecs[k] }

// Category returns the pack category the kind belongs to.
func (k Kind) Category() Category { return kindSpecs[k].Category }

// Directory returns the kind's directory under a namespace.
func (k Kind) Directory() string { return kindSpecs[k].Directory }

// Extension returns the file extension used on disk, including the dot.
func (k Kind) Extension() string { return kindSpecs[k].Extension }

// Group returns the human-readable group name used when rendering file
// content as a template (bound to RenderGroup).
func (k Kind) Group() string { return kindSpecs[k].Directory }

// Known reports whether the kind has a registered spec.
func (k Kind) Known() bool {
	_, ok := kindSpecs[k]
	return ok
}

// Kinds returns all registered kinds for a category, longest directory first
// so that nested directories (tags/functions) win over their parents when
// matching paths during load.
func Kinds(category Category) []Kind {
	var kinds []Kind
	for kind, spec := range kindSpecs {
		if spec.Category == category {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool {
		di, dj := kindSpecs[kinds[i]].Directory, kindSpecs[kinds[j]].Directory
		if len(di) != len(dj) {
			return len(di) > len(dj)
		}
		return di < dj
	})
	return kinds
}
