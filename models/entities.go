// Package models holds the node tables persisted through jsonsql: transactions
// and the chat, state and dapp assets attached to them.
package models

// Transaction types carrying an asset row.
const (
	TypeSend  int16 = 0
	TypeDapp  int16 = 5
	TypeChat  int16 = 8
	TypeState int16 = 9
)

type Transaction struct {
	ID              string
	BlockID         string
	Type            int16
	Timestamp       int64
	SenderPublicKey []byte
	SenderID        string
	RecipientID     string
	Amount          int64
	Fee             int64
	Signature       []byte
}

func (Transaction) TableName() string {
	return "trs"
}

type Chat struct {
	TransactionID string `orm:"pk=true"`
	Message       string
	OwnMessage    string
	Type          int16
}

type State struct {
	TransactionID string `orm:"pk=true"`
	StoredKey     string
	StoredValue   string
	Type          int16
}

type Dapp struct {
	TransactionID string `orm:"pk=true"`
	Name          string
	Description   string
	Tags          string
	Link          string
	Icon          string
	Type          int16
	Category      int16
}

// ChatMessage is a chat joined with the transaction that carried it.
type ChatMessage struct {
	TransactionID string
	Message       string
	OwnMessage    string
	Type          int16
	SenderID      string
	RecipientID   string
	Timestamp     int64
}

// StoredState is a state joined with the transaction that carried it.
type StoredState struct {
	TransactionID string
	StoredKey     string
	StoredValue   string
	Type          int16
	SenderID      string
	Timestamp     int64
}
