package chunkstore

import "github.com/0xcro3dile/starbot/internal/domain/entities"

// SeedChunks returns the hand-written facts used when no source loads.
func SeedChunks() []entities.Chunk {
	facts := []struct {
		id, section, text string
	}{
		{"seed-overview", "overview", "Star College is an independent school in Durban, South Africa, offering high school education for boys with a strong focus on mathematics, science and technology."},
		{"seed-website", "contact", "The Star College high school website is https://starboyshigh.co.za/. Contact details are listed on the contact-us page at https://starboyshigh.co.za/contact-us/."},
		{"seed-admissions", "admissions", "Admissions and enrollment information is available at https://starboyshigh.co.za/enrollment/. Applications are submitted online at https://starcollegedurban.ed-space.net/onlineapplication.cfm."},
		{"seed-fees", "fees", "School fees and the scholarship policy are published at https://starboyshigh.co.za/fees/ and https://starboyshigh.co.za/scholarship-policy/."},
		{"seed-boarding", "facilities", "Star College offers boarding facilities for learners. Details about boarding are at https://starboyshigh.co.za/boarding/."},
		{"seed-activities", "activities", "Learners take part in academic olympiads, sports and cultural activities. The activities page is https://starboyshigh.co.za/activities/."},
	}

	out := make([]entities.Chunk, len(facts))
	for i, f := range facts {
		out[i] = entities.Chunk{
			ID:   f.id,
			Text: f.text,
			Metadata: entities.Metadata{
				SourceType: entities.SourceFallback,
				SourceFile: "builtin",
				Section:    f.section,
			},
		}
	}
	return out
}
