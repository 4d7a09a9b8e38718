package domain

import "strings"

type CompletenessItem string

const (
	CompletenessBio           CompletenessItem = "bio"
	CompletenessAvatar        CompletenessItem = "avatar"
	CompletenessEmailVerified CompletenessItem = "email_verified"
	CompletenessPhoneVerified CompletenessItem = "phone_verified"
	CompletenessPhotoVerified CompletenessItem = "photo_verified"
	CompletenessDriverLicense CompletenessItem = "driver_license"
)

type Completeness struct {
	Percent int
	Missing []CompletenessItem
}

// ProfileCompleteness reports the share of profile items filled in. Any
// license on file counts, regardless of review status.
func ProfileCompleteness(p Profile, hasLicense bool) Completeness {
	items := []struct {
		key  CompletenessItem
		done bool
	}{
		{CompletenessBio, strings.TrimSpace(p.Bio) != ""},
		{CompletenessAvatar, strings.TrimSpace(p.AvatarURL) != ""},
		{CompletenessEmailVerified, p.EmailVerified},
		{CompletenessPhoneVerified, p.HasVerifiedPhone()},
		{CompletenessPhotoVerified, p.PhotoVerified},
		{CompletenessDriverLicense, hasLicense},
	}
	done := 0
	out := Completeness{Missing: make([]CompletenessItem, 0, len(items))}
	for _, item := range items {
		if item.done {
			done++
			continue
		}
		out.Missing = append(out.Missing, item.key)
	}
	out.Percent = done * 100 / len(items)
	return out
}
