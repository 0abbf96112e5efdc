package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, Score(0, 0))
	assert.Equal(t, 0.0, Score(5, 0))
	assert.Equal(t, 0.0, Score(0, 10))
	assert.Equal(t, 0.25, Score(1, 4))
	assert.Equal(t, 1.0, Score(3, 3))
}

func TestRankBanners(t *testing.T) {
	banners := []BannerView{
		{Banner: Banner{ID: 3}, Score: 0},
		{Banner: Banner{ID: 2}, Score: 0.5},
		{Banner: Banner{ID: 1}, Score: 0.5},
		{Banner: Banner{ID: 4}, Score: 1},
	}
	RankBanners(banners)

	var ids []int64
	for _, b := range banners {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []int64{4, 1, 2, 3}, ids)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, User{ID: 1, Username: "ada"}.Validate())
	assert.ErrorIs(t, User{ID: 1}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Partner{Name: "acme"}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Vendor{ID: 2}.Validate(), ErrInvalid)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "7:42", Key{EntityID: 7, RequesterID: 42}.String())
}
