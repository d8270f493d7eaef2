package httpapi

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "step"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Step {{.Step}} of 3</title></head>
<body>
<ol class="steps">{{range .Steps}}<li class="{{if eq . $.Step}}active{{else if lt . $.Step}}done{{end}}">{{.}}</li>{{end}}</ol>
{{with .Ad}}<div class="ad ad-{{.AdType}}">{{.Content}}</div>{{end}}
<p>Please wait <span id="left">{{.WaitSeconds}}</span> seconds.</p>
<a id="next" href="{{.NextURL}}" hidden>Continue</a>
<script>
var left = {{.WaitSeconds}};
var t = setInterval(function () {
	left--;
	document.getElementById("left").textContent = left;
	if (left <= 0) { clearInterval(t); document.getElementById("next").hidden = false; }
}, 1000);
</script>
</body>
</html>{{end}}

{{define "toofast"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Too fast</title></head>
<body>
<p>You skipped ahead too quickly. Wait {{.WaitSeconds}} more seconds before step {{.Step}}.</p>
<a href="{{.RetryURL}}">Try again</a>
</body>
</html>{{end}}

{{define "login"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Admin login</title></head>
<body>
{{with .Error}}<p class="error">{{.}}</p>{{end}}
<form method="post" action="/admin/login">
<input name="username" placeholder="username" autocomplete="username">
<input name="password" type="password" placeholder="password" autocomplete="current-password">
<button type="submit">Log in</button>
</form>
</body>
</html>{{end}}
`))

type adView struct {
	AdType  string
	Content template.HTML // ad markup is entered by the admin and rendered as is
}

type stepPage struct {
	Step        int
	Steps       []int
	Ad          *adView
	WaitSeconds int
	NextURL     string
}

type tooFastPage struct {
	Step        int
	WaitSeconds int
	RetryURL    string
}

type loginPage struct {
	Error string
}

func render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render page")
	}
}
