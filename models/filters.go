package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golobby/jsonsql"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

var ErrInvalidFilter = errors.New("models: invalid filter")

// Page holds the ordering and paging shared by every listing.
type Page struct {
	// OrderBy is "field" or "field:asc" / "field:desc".
	OrderBy string
	Limit   int
	Offset  int
}

// apply sets sort, limit and offset on q. columns maps the sortable fields
// to the column they sort on.
func (p Page) apply(q jsonsql.M, columns map[string]string) error {
	if p.OrderBy != "" {
		field, dir, _ := strings.Cut(p.OrderBy, ":")
		col, ok := columns[field]
		if !ok {
			return fmt.Errorf("%w: cannot sort by %q", ErrInvalidFilter, field)
		}
		switch strings.ToLower(dir) {
		case "", "asc":
			q["sort"] = jsonsql.M{col: 1}
		case "desc":
			q["sort"] = jsonsql.M{col: -1}
		default:
			return fmt.Errorf("%w: unknown sort direction %q", ErrInvalidFilter, dir)
		}
	}
	switch {
	case p.Limit == 0:
		q["limit"] = DefaultLimit
	case p.Limit < 0 || p.Limit > MaxLimit:
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidFilter, MaxLimit)
	default:
		q["limit"] = p.Limit
	}
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidFilter)
	}
	if p.Offset > 0 {
		q["offset"] = p.Offset
	}
	return nil
}

// TransactionFilter selects transactions. Zero fields do not filter.
type TransactionFilter struct {
	ID          string
	BlockID     string
	SenderID    string
	RecipientID string
	// Account matches transactions sent or received by the address.
	Account       string
	Types         []int16
	MinAmount     *int64
	MaxAmount     *int64
	FromTimestamp *int64
	ToTimestamp   *int64
	Page
}

var transactionSort = map[string]string{
	"id":        "id",
	"timestamp": "timestamp",
	"amount":    "amount",
	"fee":       "fee",
	"type":      "type",
}

func rangeCondition(min, max *int64) jsonsql.M {
	r := jsonsql.M{}
	if min != nil {
		r["$gte"] = *min
	}
	if max != nil {
		r["$lte"] = *max
	}
	return r
}

func (f TransactionFilter) condition(prefix string) jsonsql.M {
	cond := jsonsql.M{}
	eq := func(col, v string) {
		if v != "" {
			cond[prefix+col] = v
		}
	}
	eq("id", f.ID)
	eq("block_id", f.BlockID)
	eq("sender_id", f.SenderID)
	eq("recipient_id", f.RecipientID)
	if f.Account != "" {
		cond["$or"] = []any{
			jsonsql.M{prefix + "sender_id": f.Account},
			jsonsql.M{prefix + "recipient_id": f.Account},
		}
	}
	if len(f.Types) > 0 {
		cond[prefix+"type"] = jsonsql.M{"$in": f.Types}
	}
	if r := rangeCondition(f.MinAmount, f.MaxAmount); len(r) > 0 {
		cond[prefix+"amount"] = r
	}
	if r := rangeCondition(f.FromTimestamp, f.ToTimestamp); len(r) > 0 {
		cond[prefix+"timestamp"] = r
	}
	return cond
}

// Descriptor returns the select descriptor listing the matching transactions.
func (f TransactionFilter) Descriptor() (jsonsql.M, error) {
	q := jsonsql.M{
		"type":      "select",
		"table":     TransactionsTable.Name,
		"condition": f.condition(""),
	}
	if err := f.Page.apply(q, transactionSort); err != nil {
		return nil, err
	}
	return q, nil
}

// CountDescriptor returns the select descriptor counting the matching
// transactions. Paging is ignored.
func (f TransactionFilter) CountDescriptor() jsonsql.M {
	return jsonsql.M{
		"type":      "select",
		"table":     TransactionsTable.Name,
		"fields":    []any{jsonsql.M{"func": "count", "name": "*", "alias": "count"}},
		"condition": f.condition(""),
	}
}

func joinTransaction(alias string) []any {
	return []any{jsonsql.M{
		"type":  "inner",
		"table": TransactionsTable.Name,
		"alias": "t",
		"on":    jsonsql.M{alias + ".transaction_id": "t.id"},
	}}
}

func qualified(table string, cols ...string) []any {
	out := make([]any, len(cols))
	for i, col := range cols {
		out[i] = jsonsql.M{"table": table, "name": col}
	}
	return out
}

// ChatFilter selects chat messages.
type ChatFilter struct {
	SenderID    string
	RecipientID string
	// WithAccount matches chats sent or received by the address.
	WithAccount   string
	Type          *int16
	FromTimestamp *int64
	Page
}

var chatSort = map[string]string{
	"timestamp": "t.timestamp",
	"type":      "c.type",
}

func (f ChatFilter) Descriptor() (jsonsql.M, error) {
	cond := TransactionFilter{
		SenderID:      f.SenderID,
		RecipientID:   f.RecipientID,
		Account:       f.WithAccount,
		FromTimestamp: f.FromTimestamp,
	}.condition("t.")
	if f.Type != nil {
		cond["c.type"] = *f.Type
	}
	q := jsonsql.M{
		"type":      "select",
		"table":     ChatsTable.Name,
		"alias":     "c",
		"fields":    append(qualified("c", "transaction_id", "message", "own_message", "type"), qualified("t", "sender_id", "recipient_id", "timestamp")...),
		"join":      joinTransaction("c"),
		"condition": cond,
	}
	if err := f.Page.apply(q, chatSort); err != nil {
		return nil, err
	}
	return q, nil
}

// StateFilter selects stored states.
type StateFilter struct {
	SenderID string
	Key      string
	// KeyPrefix matches keys with a LIKE pattern of the prefix followed by %.
	KeyPrefix string
	Type      *int16
	Page
}

var stateSort = map[string]string{
	"timestamp": "t.timestamp",
	"key":       "s.stored_key",
}

func (f StateFilter) Descriptor() (jsonsql.M, error) {
	cond := TransactionFilter{SenderID: f.SenderID}.condition("t.")
	if f.Key != "" {
		cond["s.stored_key"] = f.Key
	}
	if f.KeyPrefix != "" {
		if f.Key != "" {
			return nil, fmt.Errorf("%w: Key and KeyPrefix are exclusive", ErrInvalidFilter)
		}
		cond["s.stored_key"] = jsonsql.M{"$like": f.KeyPrefix + "%"}
	}
	if f.Type != nil {
		cond["s.type"] = *f.Type
	}
	q := jsonsql.M{
		"type":      "select",
		"table":     StatesTable.Name,
		"alias":     "s",
		"fields":    append(qualified("s", "transaction_id", "stored_key", "stored_value", "type"), qualified("t", "sender_id", "timestamp")...),
		"join":      joinTransaction("s"),
		"condition": cond,
	}
	if err := f.Page.apply(q, stateSort); err != nil {
		return nil, err
	}
	return q, nil
}

// DappFilter selects registered dapps.
type DappFilter struct {
	TransactionID string
	Name          string
	Link          string
	Category      *int16
	Type          *int16
	Page
}

var dappSort = map[string]string{
	"name":     "name",
	"category": "category",
	"type":     "type",
}

func (f DappFilter) Descriptor() (jsonsql.M, error) {
	cond := jsonsql.M{}
	if f.TransactionID != "" {
		cond["transaction_id"] = f.TransactionID
	}
	if f.Name != "" {
		cond["name"] = f.Name
	}
	if f.Link != "" {
		cond["link"] = f.Link
	}
	if f.Category != nil {
		cond["category"] = *f.Category
	}
	if f.Type != nil {
		cond["type"] = *f.Type
	}
	q := jsonsql.M{
		"type":      "select",
		"table":     DappsTable.Name,
		"condition": cond,
	}
	if err := f.Page.apply(q, dappSort); err != nil {
		return nil, err
	}
	return q, nil
}
