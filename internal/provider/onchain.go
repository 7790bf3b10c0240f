package provider

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"github.com/dexlab-run/mintscan/internal/discovery"
	"github.com/dexlab-run/mintscan/internal/domain"
	"github.com/dexlab-run/mintscan/internal/solana"
)

const onchainName = "onchain"

// OnChain reads mint metadata straight from account data: decimals and
// supply from the SPL mint layout, name and symbol from the Metaplex
// metadata PDA. It backfills what the market APIs lag on for very
// fresh mints.
type OnChain struct {
	rpc AccountReader
}

// AccountReader is the slice of the RPC surface OnChain needs.
// solana.RPCClient satisfies it.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
}

// NewOnChain builds the on-chain metadata source.
func NewOnChain(rpc AccountReader) *OnChain {
	return &OnChain{rpc: rpc}
}

// Name implements Port.
func (o *OnChain) Name() string { return onchainName }

// Fetch implements Port from raw account data. A missing mint account
// is a hard not_found: the address is not an SPL token.
func (o *OnChain) Fetch(ctx context.Context, mint string) (*domain.DexInfo, error) {
	acct, err := o.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account: %w", err)
	}
	if acct == nil {
		info := domain.NewDexInfo(domain.StatusNotFound)
		info.Reason = "onchain_no_mint"
		return info, nil
	}

	info := domain.NewDexInfo(domain.StatusOK)
	info.DexName = onchainName

	decimals, supply, err := parseMintAccount(acct.Data)
	if err == nil {
		info.Set(domain.KeyDecimals, decimals)
		if supply > 0 {
			info.Set(domain.KeySupply, supply)
		}
	}

	if pda := deriveMetadataPDA(mint); pda != "" {
		metaAcct, err := o.rpc.GetAccountInfo(ctx, pda)
		if err == nil && metaAcct != nil {
			name, symbol := parseMetadataAccount(metaAcct.Data)
			if name != "" {
				info.Set(domain.KeyTokenName, name)
			}
			if symbol != "" {
				info.Set(domain.KeyBaseSymbol, symbol)
			}
		}
	}
	return info, nil
}

// ResolveSymbol implements SymbolSource from the Metaplex metadata
// account.
func (o *OnChain) ResolveSymbol(ctx context.Context, mint string) (string, float64, error) {
	pda := deriveMetadataPDA(mint)
	if pda == "" {
		return "", 0, nil
	}
	acct, err := o.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return "", 0, err
	}
	if acct == nil {
		return "", 0, nil
	}
	_, symbol := parseMetadataAccount(acct.Data)
	if symbol == "" {
		return "", 0, nil
	}
	return symbol, 0.75, nil
}

// parseMintAccount decodes the 82-byte SPL mint layout:
// mintAuthority Option<Pubkey> (36), supply u64 (8), decimals u8 (1),
// isInitialized (1), freezeAuthority Option<Pubkey> (36).
func parseMintAccount(data string) (decimals int, supply float64, err error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, 0, fmt.Errorf("decode mint account: %w", err)
	}
	if len(raw) < 82 {
		return 0, 0, fmt.Errorf("mint account too short: %d bytes", len(raw))
	}

	rawSupply := binary.LittleEndian.Uint64(raw[36:44])
	decimals = int(raw[44])
	supply = float64(rawSupply) / math.Pow(10, float64(decimals))
	return decimals, supply, nil
}

// parseMetadataAccount extracts name and symbol from a MetadataV1
// account. Layout: key u8, updateAuthority Pubkey, mint Pubkey, then
// borsh strings (4-byte LE length prefix) for name, symbol, uri.
func parseMetadataAccount(data string) (name, symbol string) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) < 100 {
		return "", ""
	}
	if raw[0] != 4 { // MetadataV1
		return "", ""
	}

	offset := 1 + 32 + 32
	name, offset = readBorshString(raw, offset, 100)
	symbol, _ = readBorshString(raw, offset, 20)
	return name, symbol
}

// readBorshString reads one length-prefixed string, returning the
// cleaned value and the next offset. A zero next offset means the
// buffer was malformed.
func readBorshString(raw []byte, offset, maxLen int) (string, int) {
	if offset <= 0 || offset+4 > len(raw) {
		return "", 0
	}
	n := int(binary.LittleEndian.Uint32(raw[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(raw) {
		return "", 0
	}
	s := strings.TrimRight(string(raw[offset:offset+n]), "\x00")
	return s, offset + n
}

// deriveMetadataPDA computes the Metaplex metadata address for a mint.
// Seeds: "metadata", program id, mint.
func deriveMetadataPDA(mint string) string {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		return ""
	}
	programBytes, err := base58.Decode(discovery.MetaplexMetadataProgram)
	if err != nil || len(programBytes) != 32 {
		return ""
	}
	return derivePDA([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
}

// derivePDA searches bump seeds from 255 down for the first sha256
// image that is not a valid ed25519 point.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		var data []byte
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}
	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

var (
	_ Port         = (*OnChain)(nil)
	_ SymbolSource = (*OnChain)(nil)
)
