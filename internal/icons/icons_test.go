package icons

import "testing"

func TestClassifyKnownLabels(t *testing.T) {
	tests := []struct {
		label string
		icon  string
		color string
	}{
		{"Salary Slip", Banknote, "emerald"},
		{"Personal", User, "blue"},
		// "medical" contains "me", so the HR rule fires before health.
		{"Medical Report", User, "rose"},
		{"Appraisal Letter", Award, "amber"},
	}
	for _, tt := range tests {
		got := Classify(tt.label)
		if got.Icon != tt.icon {
			t.Errorf("Classify(%q).Icon = %q, want %q", tt.label, got.Icon, tt.icon)
		}
		if got.Color != tt.color {
			t.Errorf("Classify(%q).Color = %q, want %q", tt.label, got.Color, tt.color)
		}
	}
}

func TestOverridesBeatHash(t *testing.T) {
	for label, color := range Overrides {
		hashed := Palette[Hash(label)%len(Palette)]
		if got := Classify(label).Color; got != color {
			t.Errorf("Classify(%q).Color = %q, want override %q (hash gives %q)", label, got, color, hashed)
		}
	}
}

func TestClassifyFallback(t *testing.T) {
	tests := []struct {
		label string
		color string
	}{
		{"ab", "amber"},  // 97+98 = 195, 195 % 8 = 3
		{"Zzz", "indigo"}, // 90+122+122 = 334, 334 % 8 = 6
	}
	for _, tt := range tests {
		got := Classify(tt.label)
		if got.Icon != Folder {
			t.Errorf("Classify(%q).Icon = %q, want %q", tt.label, got.Icon, Folder)
		}
		if got.Color != tt.color {
			t.Errorf("Classify(%q).Color = %q, want %q", tt.label, got.Color, tt.color)
		}
		if got.Category != "" {
			t.Errorf("Classify(%q).Category = %q, want empty", tt.label, got.Category)
		}
	}
}

func TestRulesFirstMatchWins(t *testing.T) {
	tests := []struct {
		label string
		icon  string
	}{
		{"Payroll 2024", Banknote},
		{"Tax Receipt", Receipt},
		{"Bank Details", Landmark},
		{"Offer Letter", FileSignature},
		{"Compliance", Scale},
		{"HR Team", Users},
		{"Career", BriefcaseBusiness},
		{"Training Certificates", GraduationCap},
		{"Insurance", Stethoscope},
		{"Photos", Image},
		{"Videos", Film},
		{"Design", PaletteIcon},
		{"Audio", Music},
		{"Engineering", Cpu},
		{"Analytics", Database},
		{"Sprint Tasks", Briefcase},
		{"Travel", Plane},
		{"Audit", Shield},
		{"Bonus", Award},
		{"HQ Office", MapPin},
		{"Division", Building},
	}
	for _, tt := range tests {
		if got := Classify(tt.label).Icon; got != tt.icon {
			r, _ := Match(tt.label)
			t.Errorf("Classify(%q).Icon = %q (rule %v), want %q", tt.label, got, r.Keywords, tt.icon)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	labels := []string{"Salary Slip", "Quarterly", "Ünïcödé", "", "Zzz"}
	for _, l := range labels {
		first := Classify(l)
		for i := 0; i < 10; i++ {
			if got := Classify(l); got != first {
				t.Fatalf("Classify(%q) changed between calls: %v then %v", l, first, got)
			}
		}
	}
}

func TestHashCountsUTF16Units(t *testing.T) {
	// U+1F600 encodes as the surrogate pair D83D DE00.
	if got, want := Hash("\U0001F600"), 0xD83D+0xDE00; got != want {
		t.Errorf("Hash(emoji) = %d, want %d", got, want)
	}
	if got := Hash(""); got != 0 {
		t.Errorf("Hash(\"\") = %d, want 0", got)
	}
}
