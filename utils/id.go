package utils

import (
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

type IDGenerator interface {
	Next() string
	NextWithPrefix(prefix string) string
}

type StringIDGenerator struct {
	producer func() string
}

func (gen *StringIDGenerator) Next() string {
	return gen.producer()
}

func (gen *StringIDGenerator) NextWithPrefix(prefix string) string {
	return prefix + gen.Next()
}

var (
	// short IDs name connections in logs, long IDs tag messages on the wire
	connIDGen IDGenerator = &StringIDGenerator{producer: shortuuid.New}
	msgIDGen  IDGenerator = &StringIDGenerator{producer: uuid.NewString}
)

func GenID() string {
	return msgIDGen.Next()
}

func GenConnID() string {
	return connIDGen.NextWithPrefix("conn.")
}
