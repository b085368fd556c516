package service

import (
	"context"
	"fmt"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/repository"
)

const (
	QueryNative = "native"
	QueryScan   = "scan"
)

// ProductLister is the query strategy behind ProductService.List.
type ProductLister interface {
	List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error)
}

func NewProductLister(strategy string, repo repository.ProductRepository) (ProductLister, error) {
	switch strategy {
	case QueryNative, "":
		return &NativeLister{repo: repo}, nil
	case QueryScan:
		return &ScanLister{repo: repo}, nil
	default:
		return nil, fmt.Errorf("unknown product query strategy %q", strategy)
	}
}

// NativeLister pushes filtering, ordering and limit down to the store's indexes.
type NativeLister struct {
	repo repository.ProductRepository
}

func (l *NativeLister) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	products, err := l.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, readErr("list products", err)
	}
	return products, nil
}

// ScanLister fetches the whole collection and filters in memory. Cost grows with the
// collection size; it needs no indexes.
type ScanLister struct {
	repo repository.ProductRepository
}

func (l *ScanLister) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	all, err := l.repo.ScanProducts(ctx)
	if err != nil {
		return nil, readErr("scan products", err)
	}
	return domain.FilterProducts(all, f), nil
}
