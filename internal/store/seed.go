package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/acctql/internal/model"
)

// Seed is the YAML dataset format accepted by LoadSeed.
//
//	accounts:
//	  - id: acc-001
//	    name: Operating
//	    owner: alice
//	    balance: 125000
//	transactions:
//	  - id: tx-seed-1
//	    account_id: acc-001
//	    amount: 125000
//	    memo: opening balance
//
// Seeded transactions are history only: they do not change balances.
type Seed struct {
	Accounts     []model.Account     `yaml:"accounts"`
	Transactions []model.Transaction `yaml:"transactions"`
}

// SeedResult counts the records written by LoadSeed.
type SeedResult struct {
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
}

// ParseSeed decodes a YAML seed document. Unknown fields are rejected.
func ParseSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return &seed, nil
		}
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, a := range seed.Accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("parse seed: accounts[%d]: id is required", i)
		}
		if a.Status != "" && !a.Status.Valid() {
			return nil, fmt.Errorf("parse seed: accounts[%d]: invalid status %q", i, a.Status)
		}
	}
	for i, t := range seed.Transactions {
		if t.ID == "" || t.AccountID == "" {
			return nil, fmt.Errorf("parse seed: transactions[%d]: id and account_id are required", i)
		}
	}
	return &seed, nil
}

// LoadSeed writes every record of a parsed seed in one SQL transaction.
// Either the whole seed is written or nothing is.
func (s *Store) LoadSeed(ctx context.Context, seed *Seed) (SeedResult, error) {
	var res SeedResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, a := range seed.Accounts {
			if _, err := insertAccount(ctx, tx, a); err != nil {
				return fmt.Errorf("account %s: %w", a.ID, err)
			}
			res.Accounts++
		}
		for _, t := range seed.Transactions {
			seq, err := nextSeq(ctx, tx)
			if err != nil {
				return err
			}
			t.Seq = seq
			if _, err := insertTransaction(ctx, tx, t); err != nil {
				return err
			}
			res.Transactions++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("load seed: %w", err)
	}
	return res, nil
}

// LoadSeedFile parses and loads the YAML seed at path.
func (s *Store) LoadSeedFile(ctx context.Context, path string) (SeedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedResult{}, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	seed, err := ParseSeed(f)
	if err != nil {
		return SeedResult{}, err
	}
	return s.LoadSeed(ctx, seed)
}
