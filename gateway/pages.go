package gateway

import "html/template"

// pages bundles the three server-rendered views: the welcome page, the
// payment page (with and without payment details) and the delivered article.
var pages = template.Must(template.New("pages").Parse(`
{{define "welcome"}}<!DOCTYPE html>
<html>
<head><title>slugpay</title></head>
<body>
  <h1>Pay-per-article gateway</h1>
  <p>Open an article by its slug to unlock it with a micropayment.</p>
</body>
</html>{{end}}

{{define "pay"}}<!DOCTYPE html>
<html>
<head><title>Payment required</title></head>
<body>
  <h1>Payment required</h1>
{{if .HasDetails}}
  <p>Send at least <strong>{{.Price}}</strong> base units to:</p>
  <pre id="address">{{.Address}}</pre>
  <p>Attach the following metadata to the transaction:</p>
  <pre id="metadata">{{.Slug}}:{{.TokenHash}}</pre>
  <p id="status">Waiting for your payment&hellip;</p>
  <script>
    (function () {
      var proto = location.protocol === "https:" ? "wss://" : "ws://";
      var ws = new WebSocket(proto + location.host + "/ws");
      ws.onopen = function () {
        ws.send(JSON.stringify({type: "await_payment", user_token_hash: "{{.TokenHash}}"}));
      };
      ws.onmessage = function (msg) {
        var ev = JSON.parse(msg.data);
        if (ev.type === "payment_received") {
          document.getElementById("status").textContent = "Payment received, reloading...";
          location.reload();
        }
      };
    })();
  </script>
{{else}}
  <p>This article is behind a paywall. Reload the page to get your payment details.</p>
{{end}}
</body>
</html>{{end}}

{{define "article"}}<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
  <h1>{{.Title}}</h1>
  {{.Body}}
  <p><a href="{{.OriginURL}}">Read at the source</a></p>
</body>
</html>{{end}}
`))

// payPage is the data for the "pay" template. A zero HasDetails renders the
// first-visit page that only establishes the session cookie.
type payPage struct {
	HasDetails bool
	Slug       string
	TokenHash  string
	Address    string
	Price      uint64
}

// articlePage is the data for the "article" template.
type articlePage struct {
	Title     string
	Body      template.HTML
	OriginURL string
}
