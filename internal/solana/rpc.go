package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface the scanner needs.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns (nil, nil) when the transaction is unknown.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves raw account data by public key.
	// Returns (nil, nil) when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PostTokenBalances []TokenBalance
}

// TokenBalance is one post-transaction token balance entry.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
}

// DistinctPostMints returns the deduplicated mints present in
// postTokenBalances, preserving first-seen order.
func (m *TransactionMeta) DistinctPostMints() []string {
	if m == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(m.PostTokenBalances))
	var mints []string
	for _, tb := range m.PostTokenBalances {
		if tb.Mint == "" {
			continue
		}
		if _, ok := seen[tb.Mint]; ok {
			continue
		}
		seen[tb.Mint] = struct{}{}
		mints = append(mints, tb.Mint)
	}
	return mints
}
