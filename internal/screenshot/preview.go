package screenshot

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Preview is the data for the social post preview page.
type Preview struct {
	ImageURL    string
	Caption     string
	ProductName string
	UserName    string
	Likes       int
}

var previewTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { margin: 0; font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #fafafa; }
.post { width: 480px; margin: 20px auto; background: #fff; border: 1px solid #dbdbdb; border-radius: 8px; overflow: hidden; }
.header { padding: 14px 16px; font-weight: 600; font-size: 14px; border-bottom: 1px solid #efefef; }
.header span { display: block; font-weight: 400; font-size: 12px; color: #8e8e8e; }
.image { width: 100%; display: block; background: #f0f0f0; }
.likes { padding: 8px 16px; font-weight: 600; font-size: 14px; }
.caption { padding: 0 16px 16px; font-size: 14px; line-height: 18px; white-space: pre-wrap; }
.caption b { margin-right: 8px; }
</style>
</head>
<body>
<div class="post">
  <div class="header">{{.UserName}}<span>{{.ProductName}}</span></div>
  <img class="image" src="{{.ImageURL}}" alt="{{.ProductName}}">
  <div class="likes">{{.Likes}} likes</div>
  <div class="caption"><b>{{.UserName}}</b>{{.Caption}}</div>
</div>
</body>
</html>
`))

// RenderPreview renders p as a standalone HTML page. Text fields are escaped;
// data: image URLs are allowed through.
func RenderPreview(p Preview) (string, error) {
	if p.UserName == "" {
		p.UserName = "AI Showcase"
	}
	if p.ProductName == "" {
		p.ProductName = "Product"
	}
	var buf bytes.Buffer
	err := previewTmpl.Execute(&buf, struct {
		Preview
		ImageURL template.URL
	}{Preview: p, ImageURL: safeImageURL(p.ImageURL)})
	if err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return buf.String(), nil
}

// safeImageURL passes http(s) and data:image URLs and blanks anything else.
func safeImageURL(u string) template.URL {
	for _, prefix := range []string{"https://", "http://", "data:image/"} {
		if strings.HasPrefix(u, prefix) {
			return template.URL(u)
		}
	}
	return ""
}
