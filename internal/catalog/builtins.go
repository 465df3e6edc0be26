package catalog

import "slidestudio/internal/slide"

// Builtins 返回首次启动时写入的内置模板。
func Builtins() []slide.Template {
	heading := slide.DefaultStyle(slide.ElementHeading)
	paragraph := slide.DefaultStyle(slide.ElementParagraph)
	caption := slide.DefaultStyle(slide.ElementCaption)

	left := paragraph
	left.TextAlign = slide.AlignLeft
	leftHeading := heading
	leftHeading.TextAlign = slide.AlignLeft

	return []slide.Template{
		{
			Name:        "Hero Headline",
			Description: "Full-bleed banner with a headline and a supporting line.",
			LayoutType:  slide.LayoutFull,
			Data: slide.TemplateData{TextAreas: []slide.TextArea{
				{ID: "headline", Type: slide.ElementHeading, DefaultText: "Your headline here", Position: slide.Position{X: 50, Y: 40}, Style: heading},
				{ID: "subline", Type: slide.ElementParagraph, DefaultText: "A short supporting message", Position: slide.Position{X: 50, Y: 58}, Style: paragraph},
			}},
			DefaultStyles: slide.DefaultStyles{BackgroundColor: "#1e293b"},
		},
		{
			Name:        "Concert Announcement",
			Description: "Title, date line and venue caption for upcoming performances.",
			LayoutType:  slide.LayoutFull,
			Data: slide.TemplateData{TextAreas: []slide.TextArea{
				{ID: "title", Type: slide.ElementHeading, DefaultText: "Spring Concert", Position: slide.Position{X: 50, Y: 35}, Style: heading},
				{ID: "date", Type: slide.ElementParagraph, DefaultText: "Saturday, 7:30 PM", Position: slide.Position{X: 50, Y: 55}, Style: paragraph},
				{ID: "venue", Type: slide.ElementCaption, DefaultText: "Memorial Chapel", Position: slide.Position{X: 50, Y: 70}, Style: caption},
			}},
			DefaultStyles: slide.DefaultStyles{BackgroundColor: "#4c1d95"},
		},
		{
			Name:        "Split Banner",
			Description: "Content in the top half; the bottom half is reserved for page content.",
			LayoutType:  slide.LayoutHalfHorizontal,
			Data: slide.TemplateData{TextAreas: []slide.TextArea{
				{ID: "headline", Type: slide.ElementHeading, DefaultText: "Season highlights", Position: slide.Position{X: 50, Y: 20}, Style: heading},
				{ID: "body", Type: slide.ElementParagraph, DefaultText: "Tell visitors what is new", Position: slide.Position{X: 50, Y: 38}, Style: paragraph},
			}},
			DesignableAreas: DefaultDesignableAreas(slide.LayoutHalfHorizontal),
			DefaultStyles:   slide.DefaultStyles{BackgroundColor: "#0f766e"},
		},
		{
			Name:        "Side Panel",
			Description: "Left-aligned text on the left half of the slide.",
			LayoutType:  slide.LayoutHalfVertical,
			Data: slide.TemplateData{TextAreas: []slide.TextArea{
				{ID: "headline", Type: slide.ElementHeading, DefaultText: "Join the choir", Position: slide.Position{X: 25, Y: 40}, Style: leftHeading},
				{ID: "body", Type: slide.ElementParagraph, DefaultText: "Auditions open every semester", Position: slide.Position{X: 25, Y: 60}, Style: left},
			}},
			DesignableAreas: DefaultDesignableAreas(slide.LayoutHalfVertical),
			DefaultStyles:   slide.DefaultStyles{BackgroundColor: "#1d4ed8"},
		},
		{
			Name:        "Corner Card",
			Description: "A compact note in the top-left quarter.",
			LayoutType:  slide.LayoutQuarter,
			Data: slide.TemplateData{TextAreas: []slide.TextArea{
				{ID: "note", Type: slide.ElementParagraph, DefaultText: "Tickets on sale now", Position: slide.Position{X: 25, Y: 25}, Style: paragraph},
			}},
			DesignableAreas: DefaultDesignableAreas(slide.LayoutQuarter),
			DefaultStyles:   slide.DefaultStyles{BackgroundColor: "#b45309"},
		},
	}
}
