package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// Pyth v2 account constants.
const (
	pythMagic            uint32 = 0xa1b2c3d4
	pythVersion2         uint32 = 2
	pythAccountTypePrice uint32 = 3
	pythStatusTrading    uint32 = 1

	// Bytes up to and including the aggregate price info.
	pythPriceAccountMinSize = 240
)

// DevnetRPC is the public Solana devnet endpoint.
const DevnetRPC = rpc.DevNet_RPC

// AccountReader is the subset of *rpc.Client used by PythAccount.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

type pythRational struct {
	Val   int64
	Numer int64
	Denom int64
}

type pythPriceInfo struct {
	Price           int64
	Conf            uint64
	Status          uint32
	CorporateAction uint32
	PublishSlot     uint64
}

// pythPriceAccount is the fixed header of a Pyth v2 price account. The
// per-publisher component array that follows is not decoded.
type pythPriceAccount struct {
	Magic         uint32
	Version       uint32
	AccountType   uint32
	Size          uint32
	PriceType     uint32
	Exponent      int32
	NumComponents uint32
	NumQuoters    uint32
	LastSlot      uint64
	ValidSlot     uint64
	EMAPrice      pythRational
	EMAConf       pythRational
	Timestamp     int64
	MinPublishers uint8
	Drv2          uint8
	Drv3          uint16
	Drv4          uint32
	Product       [32]byte
	Next          [32]byte
	PrevSlot      uint64
	PrevPrice     int64
	PrevConf      uint64
	PrevTimestamp int64
	Agg           pythPriceInfo
}

// PythPrice is the decoded current price of an account.
type PythPrice struct {
	Price       decimal.Decimal
	Conf        decimal.Decimal
	PublishTime int64
	Trading     bool
}

// DecodePythPriceAccount parses raw account data. When the aggregate is
// not in trading status the previous valid price is returned, matching
// the unchecked read of the Pyth SDK.
func DecodePythPriceAccount(data []byte) (PythPrice, error) {
	if len(data) < pythPriceAccountMinSize {
		return PythPrice{}, fmt.Errorf("price account too short: %d bytes", len(data))
	}

	var acct pythPriceAccount
	if err := bin.NewBinDecoder(data).Decode(&acct); err != nil {
		return PythPrice{}, fmt.Errorf("decode price account: %w", err)
	}

	if acct.Magic != pythMagic {
		return PythPrice{}, fmt.Errorf("bad magic 0x%08x", acct.Magic)
	}
	if acct.Version != pythVersion2 {
		return PythPrice{}, fmt.Errorf("unsupported version %d", acct.Version)
	}
	if acct.AccountType != pythAccountTypePrice {
		return PythPrice{}, fmt.Errorf("not a price account (type %d)", acct.AccountType)
	}

	if acct.Agg.Status == pythStatusTrading {
		return PythPrice{
			Price:       decimal.New(acct.Agg.Price, acct.Exponent),
			Conf:        decimal.NewFromBigInt(new(big.Int).SetUint64(acct.Agg.Conf), acct.Exponent),
			PublishTime: acct.Timestamp,
			Trading:     true,
		}, nil
	}
	return PythPrice{
		Price:       decimal.New(acct.PrevPrice, acct.Exponent),
		Conf:        decimal.NewFromBigInt(new(big.Int).SetUint64(acct.PrevConf), acct.Exponent),
		PublishTime: acct.PrevTimestamp,
	}, nil
}

// PythAccount reads Pyth price accounts from a Solana RPC node. feedID is
// the base58 price account address.
type PythAccount struct {
	name   string
	reader AccountReader
	logger *slog.Logger
}

// NewPythAccount creates a Pyth account provider using rpcURL.
func NewPythAccount(name, rpcURL string, logger *slog.Logger) *PythAccount {
	return NewPythAccountWithReader(name, rpc.New(rpcURL), logger)
}

// NewPythAccountWithReader creates a Pyth account provider on an existing reader.
func NewPythAccountWithReader(name string, reader AccountReader, logger *slog.Logger) *PythAccount {
	if logger == nil {
		logger = slog.Default()
	}
	return &PythAccount{name: name, reader: reader, logger: logger}
}

// Name implements Provider.
func (p *PythAccount) Name() string { return p.name }

// Fetch implements Provider.
func (p *PythAccount) Fetch(ctx context.Context, symbol, feedID string) (model.Observation, error) {
	key, err := solana.PublicKeyFromBase58(feedID)
	if err != nil {
		return model.Observation{}, decodeError(p.name, fmt.Errorf("feed address %q: %w", feedID, err))
	}

	res, err := p.reader.GetAccountInfo(ctx, key)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return model.Observation{}, notFoundError(p.name, fmt.Errorf("account %s: %w", feedID, err))
		}
		return model.Observation{}, connectionError(p.name, fmt.Errorf("get account %s: %w", feedID, err))
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return model.Observation{}, notFoundError(p.name, fmt.Errorf("account %s has no data", feedID))
	}

	price, err := DecodePythPriceAccount(res.Value.Data.GetBinary())
	if err != nil {
		return model.Observation{}, decodeError(p.name, err)
	}
	if !price.Trading {
		p.logger.Debug("pyth aggregate not trading, using previous price",
			"symbol", symbol,
			"feed", feedID,
		)
	}

	return newObservation(p.name, symbol, price.Price, price.Conf, price.PublishTime)
}
