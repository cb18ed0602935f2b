package domain_test

import (
	"testing"

	"github.com/jademcosta/pescador/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseObjectNotice(t *testing.T) {
	notice, err := domain.ParseObjectNotice([]byte(`{"name": "inbox/report.csv"}`))
	assert.NoError(t, err, "should not error on well-formed payload")
	assert.Equal(t, "inbox/report.csv", notice.Name, "should extract the object key")
}

func TestParseObjectNoticeWithoutName(t *testing.T) {
	notice, err := domain.ParseObjectNotice([]byte(`{"foo": "bar"}`))
	assert.NoError(t, err, "a payload without name is valid, just not actionable")
	assert.Empty(t, notice.Name, "name should be empty")
}

func TestParseObjectNoticeMalformed(t *testing.T) {
	_, err := domain.ParseObjectNotice([]byte(`not json at all`))
	assert.Error(t, err, "should error on malformed payload")

	_, err = domain.ParseObjectNotice([]byte(``))
	assert.Error(t, err, "should error on empty payload")
}
