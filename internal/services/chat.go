package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/repos"
	"github.com/voxnote/voxnote-backend/internal/types"
)

const placeholderTitle = "新對話"

const chatSystemPromptPrefix = `你是一個專業助手。你的背景知識庫包含 Instagram 影音逐字稿與上傳的文件資料。
請優先根據資料庫內容回答，並參考歷史脈絡。請使用繁體中文。

**重要日期規範**：
1. 每一則資料都有標註「存入日期」。
2. 當使用者詢問特定日期（如「2月23日」）的內容時，你**必須**僅比對標註為該日期的資料。
3. 如果資料庫中該日期的內容與使用者的問題不符，請誠實回答「資料庫中該日期的資料與此主題無關」或「找不到該日期的相關紀錄」，絕對**不可以**拿其他日期的內容來充數。
4. 在回答中，請適時提及你參考的是哪一個日期的資料。

背景知識資料庫內容：
`

type ChatRequest struct {
	Message  string
	ThreadID *int64
	Model    string
	TagID    *int64
}

type ChatResult struct {
	ThreadID int64             `json:"thread_id"`
	Answer   string            `json:"answer"`
	Sources  []types.SourceRef `json:"sources"`
	Usage    types.Usage       `json:"usage"`
	Cost     string            `json:"cost"`
}

// MessageView is one history entry as returned to clients, with the source
// snapshot decoded.
type MessageView struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Sources   []types.SourceRef `json:"sources"`
	CreatedAt time.Time         `json:"created_at"`
}

type ChatService interface {
	SendMessage(ctx context.Context, req ChatRequest) (*ChatResult, error)
	ListThreads(ctx context.Context) ([]*types.ChatThread, error)
	ListMessages(ctx context.Context, threadID int64) ([]MessageView, error)
	DeleteThread(ctx context.Context, threadID int64) error
}

type chatService struct {
	db  *gorm.DB
	log *logger.Logger

	threads     repos.ChatThreadRepo
	messages    repos.ChatMessageRepo
	transcripts repos.TranscriptRepo
	documents   repos.DocumentRepo

	embedder  EmbeddingProvider
	providers *ProviderSet
	ranker    Ranker
	pricing   *PricingService

	historyLimit  int
	topK          int
	publicBaseURL string

	// Serializes turns on the same thread so interleaved histories cannot
	// happen. Entries are never evicted; thread counts stay small here.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	threadRepo repos.ChatThreadRepo,
	messageRepo repos.ChatMessageRepo,
	transcriptRepo repos.TranscriptRepo,
	documentRepo repos.DocumentRepo,
	embedder EmbeddingProvider,
	providers *ProviderSet,
	ranker Ranker,
	pricing *PricingService,
	historyLimit int,
	topK int,
	publicBaseURL string,
) ChatService {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if topK <= 0 {
		topK = 10
	}
	return &chatService{
		db:            db,
		log:           baseLog.With("service", "ChatService"),
		threads:       threadRepo,
		messages:      messageRepo,
		transcripts:   transcriptRepo,
		documents:     documentRepo,
		embedder:      embedder,
		providers:     providers,
		ranker:        ranker,
		pricing:       pricing,
		historyLimit:  historyLimit,
		topK:          topK,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		locks:         map[int64]*sync.Mutex{},
	}
}

func (s *chatService) threadLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if m, ok := s.locks[id]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.locks[id] = m
	return m
}

func (s *chatService) SendMessage(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, NewValidationError("message is required")
	}
	provider := s.providers.For(req.Model)

	// 1. Resolve thread.
	isNewThread := false
	var threadID int64
	if req.ThreadID != nil {
		thread, err := s.threads.GetByID(ctx, nil, *req.ThreadID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		threadID = thread.ID
	} else {
		thread, err := s.threads.Create(ctx, nil, &types.ChatThread{Title: placeholderTitle})
		if err != nil {
			return nil, err
		}
		threadID = thread.ID
		isNewThread = true
	}

	lock := s.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	// 2. Conversational history, oldest first.
	history, err := s.messages.ListRecent(ctx, nil, threadID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}

	// 3. Embed the query. The embedding provider is fixed regardless of the
	// answering model.
	queryVector, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return nil, err
	}

	// 4. Rank all indexed records, optionally scoped to one tag.
	candidates, err := s.gatherCandidates(ctx, req.TagID)
	if err != nil {
		return nil, err
	}
	ranked := s.ranker.Rank(queryVector, candidates, s.topK)

	// 5. Assemble the prompt context.
	contextBlock := BuildContext(ranked)

	// 6. Title for a fresh thread, otherwise bump updated_at.
	if isNewThread {
		if err := s.generateTitle(ctx, provider, threadID, message); err != nil {
			return nil, err
		}
	} else {
		if err := s.threads.Touch(ctx, nil, threadID); err != nil {
			return nil, err
		}
	}

	// 7. Generate the answer.
	systemPrompt := chatSystemPromptPrefix + contextBlock
	generation, err := provider.Generate(ctx, turns, message, systemPrompt)
	if err != nil {
		return nil, err
	}

	// 8. Advisory cost: answer tokens plus the query embedding call.
	cost := s.pricing.TokenCost(provider.Model(), generation.Usage) +
		s.pricing.EmbeddingCost(s.embedder.Model(), len(queryVector))

	// 9. Persist both sides of the turn atomically; a failed generation has
	// already returned, so no orphaned user message can exist.
	sources := s.sourceRefs(ranked)
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.messages.Create(ctx, tx, &types.ChatMessage{
			ThreadID: threadID,
			Role:     types.RoleUser,
			Content:  message,
		}); err != nil {
			return err
		}
		_, err := s.messages.Create(ctx, tx, &types.ChatMessage{
			ThreadID: threadID,
			Role:     types.RoleAssistant,
			Content:  generation.Text,
			Sources:  datatypes.JSON(sourcesJSON),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		ThreadID: threadID,
		Answer:   generation.Text,
		Sources:  sources,
		Usage:    generation.Usage,
		Cost:     FormatCost(cost),
	}, nil
}

func (s *chatService) gatherCandidates(ctx context.Context, tagID *int64) ([]CandidateSource, error) {
	transcripts, err := s.transcripts.ListIndexed(ctx, nil, tagID)
	if err != nil {
		return nil, err
	}
	documents, err := s.documents.ListIndexed(ctx, nil, tagID)
	if err != nil {
		return nil, err
	}

	candidates := make([]CandidateSource, 0, len(transcripts)+len(documents))
	for _, t := range transcripts {
		embedding := ""
		if t.Embedding != nil {
			embedding = *t.Embedding
		}
		candidates = append(candidates, CandidateSource{
			ID:        t.ID,
			Kind:      SourceKindReel,
			URL:       t.URL,
			Content:   t.Transcript,
			Embedding: embedding,
			CreatedAt: t.CreatedAt,
		})
	}
	for _, d := range documents {
		embedding := ""
		if d.Embedding != nil {
			embedding = *d.Embedding
		}
		candidates = append(candidates, CandidateSource{
			ID:        d.ID,
			Kind:      SourceKindDoc,
			Name:      d.Name,
			Filename:  d.Filename,
			Content:   d.Content,
			Embedding: embedding,
			CreatedAt: d.CreatedAt,
		})
	}
	return candidates, nil
}

func (s *chatService) sourceRefs(ranked []RankedSource) []types.SourceRef {
	refs := make([]types.SourceRef, 0, len(ranked))
	for _, r := range ranked {
		ref := types.SourceRef{ID: r.ID, Type: r.Kind}
		if r.Kind == SourceKindReel {
			ref.URL = r.URL
			ref.Name = "Reel 原文"
		} else {
			ref.URL = s.publicBaseURL + "/uploads/" + r.Filename
			ref.Name = r.Name
		}
		refs = append(refs, ref)
	}
	return refs
}

var titleQuoteStripper = strings.NewReplacer(`"`, "", `'`, "", "「", "", "」", "")

func (s *chatService) generateTitle(ctx context.Context, provider GenerationProvider, threadID int64, message string) error {
	generation, err := provider.Generate(ctx, nil, "針對以下提問縮短成一個 3-5 字的標題："+message, "")
	if err != nil {
		return err
	}
	title := strings.TrimSpace(titleQuoteStripper.Replace(generation.Text))
	if title == "" {
		title = placeholderTitle
	}
	return s.threads.SetTitle(ctx, nil, threadID, title)
}

func (s *chatService) ListThreads(ctx context.Context) ([]*types.ChatThread, error) {
	return s.threads.List(ctx, nil)
}

func (s *chatService) ListMessages(ctx context.Context, threadID int64) ([]MessageView, error) {
	messages, err := s.messages.ListByThread(ctx, nil, threadID, 0)
	if err != nil {
		return nil, err
	}
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		view := MessageView{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
		if len(m.Sources) > 0 {
			if err := json.Unmarshal(m.Sources, &view.Sources); err != nil {
				s.log.Warn("Dropping undecodable source snapshot", "message_id", m.ID, "error", err)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *chatService) DeleteThread(ctx context.Context, threadID int64) error {
	affected, err := s.threads.Delete(ctx, nil, threadID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
