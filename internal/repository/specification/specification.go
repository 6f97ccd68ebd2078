package specification

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Specification narrows or orders a query.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Func adapts a plain function to Specification.
type Func func(db *gorm.DB) *gorm.DB

func (f Func) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// Apply runs specs against db in order.
func Apply(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Newest keeps the n rows with the highest id, newest first.
func Newest(n int) Specification {
	return Func(func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).Limit(n)
	})
}

// BySource keeps documents indexed from source.
func BySource(source string) Specification {
	return Func(func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Name: "source"}, Value: source})
	})
}

// NearestTo orders embeddings by cosine distance to v and keeps k of them.
// The bare distance expression lets postgres use the HNSW index.
func NearestTo(v pgvector.Vector, k int) Specification {
	return Func(func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "embedding_value <=> ?",
			Vars:               []interface{}{v},
			WithoutParentheses: true,
		}}).Limit(k)
	})
}
