package letters

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/langchou/fleetguard/internal/warning"
)

// Renderer 将警告信字段渲染为文档内容
type Renderer interface {
	Render(ctx context.Context, payload warning.LetterPayload) ([]byte, error)
	// Ext 产出文件的扩展名（不含点）
	Ext() string
}

// 默认警告信模板，后续可通过 LETTER_TEMPLATE 指定外部文件
const defaultTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Speeding Warning Letter</title></head>
<body>
<h2>Speeding Violation Warning Letter</h2>
<p>Driver: {{.DriverName}} (ID: {{.DriverID}})</p>
<p>Department: {{.FleetGroup}}</p>
<p>Vehicle: {{.VehiclePlate}} &nbsp; Shift: {{.Shift}}</p>
<p>Date: {{.IncidentDate}} &nbsp; Time: {{.IncidentTime}}</p>
<p>Location: {{.Area}}</p>
<p>Posted limit: {{.SpeedLimit}} km/h &nbsp; Recorded speed: {{.MaxSpeed}} km/h &nbsp; Overspeed: {{.Overspeed}} km/h</p>
<p>This letter serves as a formal warning. Repeated violations will lead to
disciplinary action in line with the fleet safety policy.</p>
</body>
</html>
`

// HTMLRenderer 基于 html/template 的信函渲染器
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer 创建渲染器，templateText 为空时使用内置模板
func NewHTMLRenderer(templateText string) (*HTMLRenderer, error) {
	if templateText == "" {
		templateText = defaultTemplate
	}
	tmpl, err := template.New("letter").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parse letter template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

// Render 渲染一封警告信
func (r *HTMLRenderer) Render(_ context.Context, payload warning.LetterPayload) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, payload); err != nil {
		return nil, fmt.Errorf("render letter: %w", err)
	}
	return buf.Bytes(), nil
}

// Ext 渲染产物为 HTML
func (r *HTMLRenderer) Ext() string {
	return "html"
}
