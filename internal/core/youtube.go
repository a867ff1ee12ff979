package core

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsValidVideoID reports whether id is an 11 character YouTube video ID.
func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// ExtractVideoID returns the video ID from a YouTube URL or a bare ID, or
// an empty string when none can be found.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if IsValidVideoID(raw) {
		return raw
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = firstPathSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segs) >= 2 {
			switch segs[0] {
			case "embed", "v", "shorts", "live":
				candidate = segs[1]
			}
		}
	}

	if IsValidVideoID(candidate) {
		return candidate
	}
	return ""
}

// BuildVideoURL returns the canonical watch URL for a video ID.
func BuildVideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func firstPathSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}

// PlayerError describes a YouTube player failure in user-facing terms.
type PlayerError struct {
	Code        int
	Message     string
	Suggestion  string
	Recoverable bool
}

func (e PlayerError) Error() string {
	return e.Message
}

var playerErrors = map[int]PlayerError{
	2: {
		Code:        2,
		Message:     "Identifiant de vidéo invalide",
		Suggestion:  "Vérifiez l'URL ou l'identifiant de la vidéo",
		Recoverable: false,
	},
	5: {
		Code:        5,
		Message:     "Erreur de lecture HTML5",
		Suggestion:  "Rechargez la page ou essayez un autre navigateur",
		Recoverable: true,
	},
	100: {
		Code:        100,
		Message:     "Vidéo introuvable ou privée",
		Suggestion:  "La vidéo a peut-être été supprimée ou rendue privée",
		Recoverable: false,
	},
	101: {
		Code:        101,
		Message:     "Lecture intégrée non autorisée",
		Suggestion:  "Le propriétaire de la vidéo n'autorise pas la lecture sur d'autres sites",
		Recoverable: false,
	},
	150: {
		Code:        150,
		Message:     "Lecture intégrée non autorisée",
		Suggestion:  "Le propriétaire de la vidéo n'autorise pas la lecture sur d'autres sites",
		Recoverable: false,
	},
}

// MapPlayerError converts a numeric YouTube player error code into a
// PlayerError. Unknown codes map to a generic recoverable error.
func MapPlayerError(code int) PlayerError {
	if e, ok := playerErrors[code]; ok {
		return e
	}
	return PlayerError{
		Code:        code,
		Message:     "Erreur inconnue du lecteur vidéo",
		Suggestion:  "Réessayez dans quelques instants",
		Recoverable: true,
	}
}
