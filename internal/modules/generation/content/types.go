package content

type Plan struct {
	Title   string    `json:"title"`
	Summary string    `json:"summary"`
	Days    []PlanDay `json:"days"`
}

type PlanDay struct {
	Day        int      `json:"day"`
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
}

// DayEntry returns the plan entry for a 1-based day, or nil.
func (p *Plan) DayEntry(day int) *PlanDay {
	if p == nil {
		return nil
	}
	for i := range p.Days {
		if p.Days[i].Day == day {
			return &p.Days[i]
		}
	}
	return nil
}

type Lesson struct {
	Title     string          `json:"title"`
	Summary   string          `json:"summary"`
	Sections  []LessonSection `json:"sections"`
	KeyPoints []string        `json:"key_points"`
}

type LessonSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

type QuizQuestion struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex *int     `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

type Flashcards struct {
	Title string      `json:"title"`
	Cards []Flashcard `json:"cards"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
