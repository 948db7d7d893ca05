package repository

import (
	"errors"
	"log/slog"
)

const (
	IDField        QueryField = "id"
	NameField      QueryField = "name"
	EmailField     QueryField = "email"
	IsActiveField  QueryField = "is_active"
	PlatformField  QueryField = "platform"
	ProductIDField QueryField = "product_id"
	StatusField    QueryField = "status"
	CreatedAtField QueryField = "created_at"
)

// ErrInvalidPageToken is returned by ApplyPagination for undecodable tokens.
var ErrInvalidPageToken = errors.New("invalid page token")

type Query struct {
	Values map[QueryField]string

	Limit int

	Paginator *Paginator
}

type QueryField string

func NewQuery() *Query {
	return &Query{
		Values: map[QueryField]string{},
	}
}

func (q *Query) With(field QueryField, val string) *Query {
	q.Values[field] = val
	return q
}

func (q *Query) ApplyPagination(limit int32, token string) error {
	queryLimit := DefaultPaginationLimit
	if limit > 0 {
		queryLimit = min(maxPaginationLimit, int(limit))
	}
	q.Limit = queryLimit

	if token == "" {
		return nil
	}

	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Error("failed to decode page token", slog.Any("err", err), slog.String("token", token))
		return ErrInvalidPageToken
	}
	q.Paginator = paginator
	return nil
}
