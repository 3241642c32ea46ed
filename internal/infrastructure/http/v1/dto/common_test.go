package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adminkit/internal/domain"
)

func TestListQuery_ToRequest(t *testing.T) {
	q := ListQuery{Page: 2, Size: 50, Sort: "name", Dir: "desc", Search: "ada"}
	assert.Equal(t, domain.ListRequest{Page: 2, Size: 50, Sort: "name", Dir: "desc", Search: "ada"}, q.ToRequest())
}
