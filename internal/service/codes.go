package service

import (
	"context"
	"fmt"

	"homestay-promo/internal/codegen"
	"homestay-promo/internal/codeset"
	"homestay-promo/internal/model"
	"homestay-promo/internal/repository"
)

type noReserved struct{}

func (noReserved) IsReserved(string) bool { return false }

// codeAllocator finds codes that are neither stored nor reserved.
type codeAllocator struct {
	generator codegen.Generator
	reserved  codeset.Reserved
	length    int
	prefix    string
	attempts  int
}

func newCodeAllocator(generator codegen.Generator, reserved codeset.Reserved, opts Options) *codeAllocator {
	if reserved == nil {
		reserved = noReserved{}
	}
	return &codeAllocator{
		generator: generator,
		reserved:  reserved,
		length:    opts.CodeLength,
		prefix:    opts.CodePrefix,
		attempts:  opts.CodeAttempts,
	}
}

// allocate returns a fresh code, or ErrCodeGenerationExhausted once every
// attempt collided.
func (a *codeAllocator) allocate(ctx context.Context, tx repository.VoucherTx) (string, error) {
	for i := 0; i < a.attempts; i++ {
		code, err := a.generator.Generate(a.length, a.prefix)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		if a.reserved.IsReserved(code) {
			continue
		}

		taken, err := tx.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", model.ErrCodeGenerationExhausted
}

// claimExplicit checks an operator-chosen code. The code must already be
// normalised.
func (a *codeAllocator) claimExplicit(ctx context.Context, tx repository.VoucherTx, code string) error {
	if a.reserved.IsReserved(code) {
		return model.ErrInvalidVoucherDefinition.WithDetail("code is reserved")
	}

	taken, err := tx.CodeExists(ctx, code)
	if err != nil {
		return err
	}
	if taken {
		return model.ErrInvalidVoucherDefinition.WithDetail("code is already in use")
	}
	return nil
}
