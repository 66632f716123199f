package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewsync_api/internal/reviews/business/dto/responses"
	"reviewsync_api/internal/reviews/business/models/review"
)

func playReviewWithComments(comments ...responses.PlayComment) responses.PlayReview {
	return responses.PlayReview{
		ReviewID:   "gp:1",
		AuthorName: "Ivan",
		Comments:   comments,
	}
}

func userComment(text string, seconds int64, nanos int) responses.PlayComment {
	return responses.PlayComment{UserComment: &responses.UserComment{
		Text:         text,
		LastModified: responses.PlayTimestamp{Seconds: seconds, Nanos: nanos},
		StarRating:   4,
	}}
}

func devComment(text string, seconds int64, nanos int) responses.PlayComment {
	return responses.PlayComment{DeveloperComment: &responses.DeveloperComment{
		Text:         text,
		LastModified: responses.PlayTimestamp{Seconds: seconds, Nanos: nanos},
	}}
}

func TestFromPlayReview_SelectsEarliestUserAndDeveloperComments(t *testing.T) {
	raw := playReviewWithComments(
		userComment("later edit", 200, 0),
		userComment("original", 100, 0),
		devComment("second reply", 300, 0),
		devComment("first reply", 250, 0),
	)

	r := FromPlayReview("acme", "com.acme.app", raw)

	assert.Equal(t, "original", r[review.FieldBody])
	assert.Equal(t, "first reply", r[review.FieldReplyBody])
	assert.Equal(t, "1970-01-01T00:01:40Z", r[review.FieldDate])
}

func TestFromPlayReview_TieBrokenByNanos(t *testing.T) {
	raw := playReviewWithComments(
		userComment("bigger nanos", 100, 500),
		userComment("smaller nanos", 100, 100),
	)

	r := FromPlayReview("acme", "com.acme.app", raw)
	assert.Equal(t, "smaller nanos", r[review.FieldBody])
}

func TestFromPlayReview_LeftoverCommentsGoToMisc(t *testing.T) {
	raw := playReviewWithComments(
		userComment("selected", 100, 0),
		userComment("unselected edit", 200, 0),
	)

	r := FromPlayReview("acme", "com.acme.app", raw)
	require.NotEmpty(t, r[review.FieldMisc])

	var leftover []responses.PlayComment
	require.NoError(t, json.Unmarshal([]byte(r[review.FieldMisc]), &leftover))
	require.Len(t, leftover, 1)
	assert.Equal(t, "unselected edit", leftover[0].UserComment.Text)
}

func TestFromPlayReview_NoMiscWhenEverythingSelected(t *testing.T) {
	raw := playReviewWithComments(userComment("only", 100, 0), devComment("reply", 150, 0))

	r := FromPlayReview("acme", "com.acme.app", raw)
	_, hasMisc := r[review.FieldMisc]
	assert.False(t, hasMisc)
}

func TestFromPlayReview_SplitsTitleFromBody(t *testing.T) {
	raw := playReviewWithComments(userComment("Great app\tWorks perfectly", 100, 0))

	r := FromPlayReview("acme", "com.acme.app", raw)
	assert.Equal(t, "Great app", r[review.FieldTitle])
	assert.Equal(t, "Works perfectly", r[review.FieldBody])
}

func TestFromPlayReview_AbsentFieldsStayNull(t *testing.T) {
	raw := responses.PlayReview{ReviewID: "gp:2"}

	r := FromPlayReview("acme", "com.acme.app", raw)

	assert.Equal(t, "acme", r[review.FieldCustomer])
	assert.Equal(t, review.StoreGooglePlay, r[review.FieldStore])
	assert.Equal(t, "gp:2", r.ID())
	_, hasBody := r[review.FieldBody]
	assert.False(t, hasBody)
	_, hasDate := r[review.FieldDate]
	assert.False(t, hasDate)
}

func TestFromPlayReview_DeviceMetadata(t *testing.T) {
	raw := playReviewWithComments(responses.PlayComment{UserComment: &responses.UserComment{
		Text:         "body",
		LastModified: responses.PlayTimestamp{Seconds: 100},
		DeviceMetadata: &responses.DeviceMetadata{
			ProductName:    "hammerhead",
			Manufacturer:   "LGE",
			ScreenWidthPx:  1080,
			ScreenHeightPx: 1920,
			NativePlatform: "armeabi-v7a,armeabi",
			RamMb:          2048,
		},
	}})

	r := FromPlayReview("acme", "com.acme.app", raw)
	assert.Equal(t, "hammerhead", r[review.FieldDeviceProduct])
	assert.Equal(t, "LGE", r[review.FieldDeviceManufacturer])
	assert.Equal(t, "1080", r[review.FieldScreenWidth])
	assert.Equal(t, "1920", r[review.FieldScreenHeight])
	assert.Equal(t, "2048", r[review.FieldRAMMb])
}

func TestFromArchiveRow_RecoversIDFromLink(t *testing.T) {
	raw := responses.ArchivedReview{
		PackageName: "com.acme.app",
		SubmittedAt: "2016-03-01T12:30:00Z",
		StarRating:  "2",
		Text:        "Crashes on start",
		ReviewLink:  "https://play.google.com/store/apps/details?id=com.acme.app&reviewId=gp%3A777",
	}

	r := FromArchiveRow("acme", raw)

	assert.Equal(t, "gp:777", r.ID())
	assert.Equal(t, review.StoreGooglePlay, r[review.FieldStore])
	assert.Equal(t, "com.acme.app", r[review.FieldAppID])
	assert.Equal(t, "2016-03-01T12:30:00Z", r[review.FieldDate])
	assert.Equal(t, "2", r[review.FieldRating])
	assert.Equal(t, raw.ReviewLink, r[review.FieldReviewLink])
}

func TestFromArchiveRow_NoLinkMeansNoID(t *testing.T) {
	raw := responses.ArchivedReview{PackageName: "com.acme.app", Text: "old review"}

	r := FromArchiveRow("acme", raw)
	assert.Empty(t, r.ID())
	_, hasLink := r[review.FieldReviewLink]
	assert.False(t, hasLink)
}

func TestFromArchiveRow_LinkWithoutParameter(t *testing.T) {
	raw := responses.ArchivedReview{
		PackageName: "com.acme.app",
		ReviewLink:  "https://play.google.com/store/apps/details?id=com.acme.app",
	}

	r := FromArchiveRow("acme", raw)
	assert.Empty(t, r.ID())
	assert.Equal(t, raw.ReviewLink, r[review.FieldReviewLink])
}

func TestFromAppStoreReview_StringifiesEverything(t *testing.T) {
	raw := responses.AppStoreReview{
		ID: "as:555",
		Attributes: responses.AppStoreReviewAttributes{
			Rating:           3,
			Title:            "Meh",
			Body:             "Could be better",
			ReviewerNickname: "grumpy",
			CreatedDate:      time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
			Territory:        "USA",
		},
	}

	r := FromAppStoreReview("acme", "123456", raw)

	assert.Equal(t, "as:555", r.ID())
	assert.Equal(t, review.StoreAppStore, r[review.FieldStore])
	assert.Equal(t, "123456", r[review.FieldAppID])
	assert.Equal(t, "3", r[review.FieldRating])
	assert.Equal(t, "USA", r[review.FieldTerritory])
	assert.Equal(t, "2024-05-06T07:08:09Z", r[review.FieldDate])
	assert.Equal(t, "grumpy", r[review.FieldAuthor])
}

func TestPlayReviewDate(t *testing.T) {
	raw := playReviewWithComments(
		userComment("edit", 200, 0),
		userComment("original", 100, 0),
	)

	date, ok := PlayReviewDate(raw)
	require.True(t, ok)
	assert.Equal(t, int64(100), date.Unix())

	_, ok = PlayReviewDate(responses.PlayReview{})
	assert.False(t, ok)
}
