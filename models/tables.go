package models

import (
	"github.com/golobby/jsonsql"
)

// Table is the DDL of one table and its indexes.
type Table struct {
	Name        string
	Columns     []jsonsql.Column
	ForeignKeys []jsonsql.ForeignKey
	Indexes     []Index
}

type Index struct {
	Name   string
	On     []string
	Unique bool
}

// CreateDescriptor returns the `create` descriptor of t.
func (t Table) CreateDescriptor() jsonsql.M {
	d := jsonsql.M{
		"type":        "create",
		"table":       t.Name,
		"tableFields": t.Columns,
	}
	if len(t.ForeignKeys) > 0 {
		d["foreignKeys"] = t.ForeignKeys
	}
	return d
}

// IndexDescriptors returns one `index` descriptor per index of t.
func (t Table) IndexDescriptors() []jsonsql.M {
	out := make([]jsonsql.M, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		out = append(out, jsonsql.M{
			"type":    "index",
			"name":    idx.Name,
			"table":   t.Name,
			"indexOn": idx.On,
			"unique":  idx.Unique,
		})
	}
	return out
}

func transactionKey() jsonsql.ForeignKey {
	return jsonsql.ForeignKey{Field: "transaction_id", Table: "trs", TableField: "id", OnDelete: "CASCADE"}
}

func assetKey() jsonsql.Column {
	return jsonsql.Column{Name: "transaction_id", Type: "String", Length: 20, PrimaryKey: true}
}

var (
	TransactionsTable = Table{
		Name: "trs",
		Columns: []jsonsql.Column{
			{Name: "id", Type: "String", Length: 20, PrimaryKey: true},
			{Name: "block_id", Type: "String", Length: 20, NotNull: true},
			{Name: "type", Type: "SmallInt", NotNull: true},
			{Name: "timestamp", Type: "Number", NotNull: true},
			{Name: "sender_public_key", Type: "Binary"},
			{Name: "sender_id", Type: "String", Length: 22, NotNull: true},
			{Name: "recipient_id", Type: "String", Length: 22},
			{Name: "amount", Type: "BigInt", NotNull: true, Default: 0},
			{Name: "fee", Type: "BigInt", NotNull: true, Default: 0},
			{Name: "signature", Type: "Binary"},
		},
		Indexes: []Index{
			{Name: "trs_block_id", On: []string{"block_id"}},
			{Name: "trs_sender_id", On: []string{"sender_id"}},
			{Name: "trs_recipient_id", On: []string{"recipient_id"}},
			{Name: "trs_timestamp", On: []string{"timestamp"}},
		},
	}

	ChatsTable = Table{
		Name: "chats",
		Columns: []jsonsql.Column{
			assetKey(),
			{Name: "message", Type: "Text", NotNull: true},
			{Name: "own_message", Type: "Text"},
			{Name: "type", Type: "SmallInt", NotNull: true},
		},
		ForeignKeys: []jsonsql.ForeignKey{transactionKey()},
	}

	StatesTable = Table{
		Name: "states",
		Columns: []jsonsql.Column{
			assetKey(),
			{Name: "stored_key", Type: "String", Length: 64, NotNull: true},
			{Name: "stored_value", Type: "Text"},
			{Name: "type", Type: "SmallInt", NotNull: true},
		},
		ForeignKeys: []jsonsql.ForeignKey{transactionKey()},
		Indexes: []Index{
			{Name: "states_stored_key", On: []string{"stored_key"}},
		},
	}

	DappsTable = Table{
		Name: "dapps",
		Columns: []jsonsql.Column{
			assetKey(),
			{Name: "name", Type: "String", Length: 32, NotNull: true},
			{Name: "description", Type: "String", Length: 160},
			{Name: "tags", Type: "String", Length: 160},
			{Name: "link", Type: "Text"},
			{Name: "icon", Type: "Text"},
			{Name: "type", Type: "SmallInt", NotNull: true},
			{Name: "category", Type: "SmallInt", NotNull: true},
		},
		ForeignKeys: []jsonsql.ForeignKey{transactionKey()},
		Indexes: []Index{
			{Name: "dapps_name", On: []string{"name"}, Unique: true},
		},
	}
)

// Tables lists every table in creation order.
func Tables() []Table {
	return []Table{TransactionsTable, ChatsTable, StatesTable, DappsTable}
}
