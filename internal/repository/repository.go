// Package repository implements the service stores on PostgreSQL via gorm.
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/services"
)

var (
	_ services.AccountStore  = (*AccountStore)(nil)
	_ services.OfferStore    = (*OfferStore)(nil)
	_ services.CategoryStore = (*CategoryStore)(nil)
	_ services.ImageStore    = (*ImageStore)(nil)
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
