package config

import (
	"strings"

	"bitbucket.org/mmdatafocus/ledger_analytics/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BusinessScopePlugin adds a business_id filter to every gorm query and row
// lookup on a model that has a business_id column, using the business id of
// the statement context. Raw SQL is not touched and must filter itself.
type BusinessScopePlugin struct{}

func NewBusinessScopePlugin() *BusinessScopePlugin { return &BusinessScopePlugin{} }

func (p *BusinessScopePlugin) Name() string { return "business_scope" }

func (p *BusinessScopePlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("business_scope:query", businessScopeCallback); err != nil {
		return err
	}
	return db.Callback().Row().Before("gorm:row").Register("business_scope:row", businessScopeCallback)
}

func businessScopeCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil || db.Statement.Schema == nil {
		return
	}
	businessId, _ := appctx.GetString(db.Statement.Context, appctx.ContextKeyBusinessId)
	if businessId == "" {
		return
	}
	if db.Statement.Schema.LookUpField("business_id") == nil {
		return
	}
	if whereHasBusinessId(db.Statement.Clauses["WHERE"]) {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "business_id"},
				Value:  businessId,
			},
		},
	})
}

func whereHasBusinessId(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasBusinessId(e) {
			return true
		}
	}
	return false
}

func exprHasBusinessId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return isBusinessIdColumn(v.Column)
	case clause.IN:
		return isBusinessIdColumn(v.Column)
	case clause.AndConditions:
		return anyHasBusinessId(v.Exprs)
	case clause.OrConditions:
		return anyHasBusinessId(v.Exprs)
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	case clause.NamedExpr:
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	default:
		return false
	}
}

func anyHasBusinessId(exprs []clause.Expression) bool {
	for _, x := range exprs {
		if exprHasBusinessId(x) {
			return true
		}
	}
	return false
}

func isBusinessIdColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	default:
		return false
	}
}
