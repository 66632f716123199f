package normalize

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reviewsync_api/internal/reviews/business/dto/responses"
	"reviewsync_api/internal/reviews/business/models/review"
)

// Нормализаторы -- чистые тотальные функции: никакого I/O, никаких ошибок.
// Каждая превращает сырую запись одного источника в каноническую строку.

// FromPlayReview нормализует отзыв Google Play. Из вложенных комментариев
// выбирается пользовательский комментарий с минимальной меткой времени и ответ
// разработчика с минимальной меткой времени; сравнение пар (seconds, nanos)
// лексикографическое. Невыбранные комментарии сериализуются как есть в misc
// для аудита.
func FromPlayReview(customer, packageName string, raw responses.PlayReview) review.Review {
	r := review.Review{
		review.FieldCustomer: customer,
		review.FieldStore:    review.StoreGooglePlay,
		review.FieldAppID:    packageName,
	}
	setIfNotEmpty(r, review.FieldReviewID, raw.ReviewID)
	setIfNotEmpty(r, review.FieldAuthor, raw.AuthorName)

	var (
		user     *responses.UserComment
		dev      *responses.DeveloperComment
		leftover []responses.PlayComment
	)
	for _, c := range raw.Comments {
		switch {
		case c.UserComment != nil:
			if user == nil || c.UserComment.LastModified.Before(user.LastModified) {
				if user != nil {
					leftover = append(leftover, responses.PlayComment{UserComment: user})
				}
				user = c.UserComment
			} else {
				leftover = append(leftover, c)
			}
		case c.DeveloperComment != nil:
			if dev == nil || c.DeveloperComment.LastModified.Before(dev.LastModified) {
				if dev != nil {
					leftover = append(leftover, responses.PlayComment{DeveloperComment: dev})
				}
				dev = c.DeveloperComment
			} else {
				leftover = append(leftover, c)
			}
		default:
			leftover = append(leftover, c)
		}
	}

	if user != nil {
		title, body := splitPlayText(user.Text)
		setIfNotEmpty(r, review.FieldTitle, title)
		setIfNotEmpty(r, review.FieldBody, body)
		setIfNotEmpty(r, review.FieldDate, formatPlayTime(user.LastModified))
		if user.StarRating > 0 {
			r[review.FieldRating] = strconv.Itoa(user.StarRating)
		}
		setIfNotEmpty(r, review.FieldLanguage, user.ReviewerLanguage)
		setIfNotEmpty(r, review.FieldDevice, user.Device)
		if user.AndroidOsVersion > 0 {
			r[review.FieldOSVersion] = strconv.Itoa(user.AndroidOsVersion)
		}
		if user.AppVersionCode > 0 {
			r[review.FieldAppVersionCode] = strconv.Itoa(user.AppVersionCode)
		}
		setIfNotEmpty(r, review.FieldAppVersionName, user.AppVersionName)
		r[review.FieldThumbsUp] = strconv.Itoa(user.ThumbsUpCount)
		r[review.FieldThumbsDown] = strconv.Itoa(user.ThumbsDownCount)

		if md := user.DeviceMetadata; md != nil {
			setIfNotEmpty(r, review.FieldDeviceProduct, md.ProductName)
			setIfNotEmpty(r, review.FieldDeviceManufacturer, md.Manufacturer)
			if md.ScreenWidthPx > 0 {
				r[review.FieldScreenWidth] = strconv.Itoa(md.ScreenWidthPx)
			}
			if md.ScreenHeightPx > 0 {
				r[review.FieldScreenHeight] = strconv.Itoa(md.ScreenHeightPx)
			}
			if md.ScreenDensityDpi > 0 {
				r[review.FieldScreenDensity] = strconv.Itoa(md.ScreenDensityDpi)
			}
			setIfNotEmpty(r, review.FieldNativePlatform, md.NativePlatform)
			if md.GlEsVersion > 0 {
				r[review.FieldGlEsVersion] = strconv.Itoa(md.GlEsVersion)
			}
			setIfNotEmpty(r, review.FieldCPUMake, md.CpuMake)
			setIfNotEmpty(r, review.FieldCPUModel, md.CpuModel)
			if md.RamMb > 0 {
				r[review.FieldRAMMb] = strconv.Itoa(md.RamMb)
			}
		}
	}

	if dev != nil {
		setIfNotEmpty(r, review.FieldReplyBody, dev.Text)
		setIfNotEmpty(r, review.FieldReplyDate, formatPlayTime(dev.LastModified))
	}

	if len(leftover) > 0 {
		if encoded, err := json.Marshal(leftover); err == nil {
			r[review.FieldMisc] = string(encoded)
		}
	}

	return r
}

// FromArchiveRow нормализует строку архивного CSV-выгруза. Колонки маппятся по
// именам напрямую; review_id восстанавливается из параметра reviewId в ссылке
// на отзыв.
func FromArchiveRow(customer string, raw responses.ArchivedReview) review.Review {
	r := review.Review{
		review.FieldCustomer: customer,
		review.FieldStore:    review.StoreGooglePlay,
	}
	setIfNotEmpty(r, review.FieldAppID, raw.PackageName)
	setIfNotEmpty(r, review.FieldReviewID, reviewIDFromLink(raw.ReviewLink))
	setIfNotEmpty(r, review.FieldDate, raw.SubmittedAt)
	setIfNotEmpty(r, review.FieldTitle, raw.Title)
	setIfNotEmpty(r, review.FieldBody, raw.Text)
	setIfNotEmpty(r, review.FieldRating, raw.StarRating)
	setIfNotEmpty(r, review.FieldLanguage, raw.Language)
	setIfNotEmpty(r, review.FieldDevice, raw.Device)
	setIfNotEmpty(r, review.FieldAppVersionCode, raw.AppVersionCode)
	setIfNotEmpty(r, review.FieldAppVersionName, raw.AppVersionName)
	setIfNotEmpty(r, review.FieldReplyDate, raw.ReplyDate)
	setIfNotEmpty(r, review.FieldReplyBody, raw.ReplyText)
	setIfNotEmpty(r, review.FieldReviewLink, raw.ReviewLink)
	return r
}

// FromAppStoreReview нормализует нативную форму отзыва App Store: прямое
// отображение поле в поле, дата и рейтинг приводятся к строкам.
func FromAppStoreReview(customer, appID string, raw responses.AppStoreReview) review.Review {
	r := review.Review{
		review.FieldCustomer: customer,
		review.FieldStore:    review.StoreAppStore,
		review.FieldAppID:    appID,
	}
	setIfNotEmpty(r, review.FieldReviewID, raw.ID)
	setIfNotEmpty(r, review.FieldTitle, raw.Attributes.Title)
	setIfNotEmpty(r, review.FieldBody, raw.Attributes.Body)
	if raw.Attributes.Rating > 0 {
		r[review.FieldRating] = strconv.Itoa(raw.Attributes.Rating)
	}
	setIfNotEmpty(r, review.FieldAuthor, raw.Attributes.ReviewerNickname)
	setIfNotEmpty(r, review.FieldTerritory, raw.Attributes.Territory)
	if !raw.Attributes.CreatedDate.IsZero() {
		r[review.FieldDate] = raw.Attributes.CreatedDate.UTC().Format(time.RFC3339)
	}
	return r
}

// PlayReviewDate возвращает дату отзыва (метку пользовательского комментария с
// минимальным временем) для предиката ограничения пагинации. Второй результат
// false, если в отзыве нет пользовательского комментария.
func PlayReviewDate(raw responses.PlayReview) (time.Time, bool) {
	var best responses.PlayTimestamp
	found := false
	for _, c := range raw.Comments {
		if c.UserComment == nil {
			continue
		}
		if !found || c.UserComment.LastModified.Before(best) {
			best = c.UserComment.LastModified
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return time.Unix(best.Seconds, int64(best.Nanos)).UTC(), true
}

func setIfNotEmpty(r review.Review, f review.Field, v string) {
	if v != "" {
		r[f] = v
	}
}

func formatPlayTime(ts responses.PlayTimestamp) string {
	if ts.IsZero() {
		return ""
	}
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC().Format(time.RFC3339)
}

// Текст пользовательского комментария приходит как "заголовок\tтело"; выгрузки
// без заголовка содержат только тело.
func splitPlayText(text string) (title, body string) {
	if i := strings.IndexByte(text, '\t'); i >= 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	}
	return "", strings.TrimSpace(text)
}

func reviewIDFromLink(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("reviewId")
}
