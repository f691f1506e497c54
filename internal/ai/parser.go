package ai

import (
	"fmt"
	"strings"

	"bedtime-server/internal/models"
)

const (
	titleMarker   = "TITLE:"
	contentMarker = "CONTENT:"
)

type parserState int

const (
	awaitingTitle parserState = iota
	awaitingContent
	markersFound
)

// StoryParser инкрементально разбирает поток токенов формата
// "TITLE: <заголовок>\nCONTENT: <текст>". Маркеры ищутся только в
// непросмотренном хвосте буфера, без повторного сканирования всего
// накопленного текста на каждом чанке.
type StoryParser struct {
	buf        strings.Builder
	state      parserState
	searchFrom int
	titleStart int
	// contentStart валиден только в состоянии markersFound
	contentStart int
	title        string
}

// NewStoryParser создаёт парсер для одного потокового ответа.
func NewStoryParser() *StoryParser {
	return &StoryParser{}
}

// Feed добавляет очередной фрагмент потока и продвигает состояние.
func (p *StoryParser) Feed(chunk string) {
	if chunk == "" {
		return
	}
	p.buf.WriteString(chunk)
	p.advance()
}

func (p *StoryParser) advance() {
	s := p.buf.String()

	if p.state == awaitingTitle {
		idx := strings.Index(s[p.searchFrom:], titleMarker)
		if idx < 0 {
			// Маркер мог быть разрезан границей чанка, оставляем хвост
			p.searchFrom = max(0, len(s)-len(titleMarker)+1)
			return
		}
		p.titleStart = p.searchFrom + idx + len(titleMarker)
		p.searchFrom = p.titleStart
		p.state = awaitingContent
	}

	if p.state == awaitingContent {
		idx := strings.Index(s[p.searchFrom:], contentMarker)
		if idx < 0 {
			p.searchFrom = max(p.titleStart, len(s)-len(contentMarker)+1)
			return
		}
		markerAt := p.searchFrom + idx
		p.title = strings.TrimSpace(s[p.titleStart:markerAt])
		p.contentStart = markerAt + len(contentMarker)
		p.state = markersFound
	}
}

// Title возвращает заголовок. Он доступен только после того, как в буфере
// появился маркер CONTENT: - до этого заголовок не считается завершённым.
func (p *StoryParser) Title() (string, bool) {
	if p.state != markersFound {
		return "", false
	}
	return p.title, true
}

// ContentSoFar возвращает накопленный текст истории после маркера CONTENT:.
// До появления обоих маркеров возвращается пустая строка.
func (p *StoryParser) ContentSoFar() string {
	if p.state != markersFound {
		return ""
	}
	return p.buf.String()[p.contentStart:]
}

// Finalize завершает разбор после закрытия потока. Если полная пара
// маркеров так и не появилась, результат - ошибка разбора, частичный
// буфер наружу не отдаётся.
func (p *StoryParser) Finalize() (title, content string, err error) {
	if p.state != markersFound {
		return "", "", fmt.Errorf("%w: failed to parse story format", models.ErrParse)
	}
	content = strings.TrimSpace(p.buf.String()[p.contentStart:])
	if content == "" {
		return "", "", fmt.Errorf("%w: story content is empty", models.ErrParse)
	}
	return p.title, content, nil
}
