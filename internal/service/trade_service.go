package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/provider"
	"freeco-signals/internal/repository"
)

var ErrInvalidTradeRequest = errors.New("invalid trade request")

const recentTradesCap = 50

type SwapClient interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (provider.JupiterQuote, error)
	Swap(ctx context.Context, quote provider.JupiterQuote) (provider.SwapResult, error)
}

type TradeRepository interface {
	InsertTrade(ctx context.Context, t domain.Trade) (domain.Trade, error)
	ListTrades(ctx context.Context, limit int) ([]domain.Trade, error)
}

type TradeRequest struct {
	InputMint   string `json:"inputMint" validate:"required,min=32,max=44,alphanum"`
	OutputMint  string `json:"outputMint" validate:"required,min=32,max=44,alphanum,nefield=InputMint"`
	Amount      uint64 `json:"amount" validate:"gt=0"`
	SlippageBps int    `json:"slippageBps" validate:"gte=0,lte=10000"`
}

// TradeService quotes swaps and prepares unsigned swap transactions.
type TradeService struct {
	tracer   trace.Tracer
	client   SwapClient
	repo     TradeRepository
	validate *validator.Validate
	now      func() time.Time

	mu     sync.Mutex
	recent []domain.Trade
	nextID int64
}

func NewTradeService(tracer trace.Tracer, client SwapClient, repo TradeRepository) *TradeService {
	return &TradeService{
		tracer:   tracer,
		client:   client,
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *TradeService) check(req TradeRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s", ErrInvalidTradeRequest, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidTradeRequest, err)
	}
	return nil
}

func (s *TradeService) Quote(ctx context.Context, req TradeRequest) (domain.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "trade-service.quote")
	defer span.End()

	if err := s.check(req); err != nil {
		return domain.Quote{}, err
	}
	q, err := s.client.Quote(ctx, req.InputMint, req.OutputMint, req.Amount, req.SlippageBps)
	if err != nil {
		return domain.Quote{}, err
	}
	return q.Quote, nil
}

// Execute quotes and builds an unsigned swap transaction. The attempt is
// recorded either way; the returned error reflects upstream failures.
func (s *TradeService) Execute(ctx context.Context, req TradeRequest) (domain.Trade, error) {
	ctx, span := s.tracer.Start(ctx, "trade-service.execute")
	defer span.End()

	if err := s.check(req); err != nil {
		return domain.Trade{}, err
	}

	trade := domain.Trade{
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		Amount:     req.Amount,
		CreatedAt:  s.now().UTC(),
	}

	q, err := s.client.Quote(ctx, req.InputMint, req.OutputMint, req.Amount, req.SlippageBps)
	if err == nil {
		trade.OutAmount = q.OutAmount
		var res provider.SwapResult
		res, err = s.client.Swap(ctx, q)
		if err == nil {
			trade.Transaction = res.Transaction
		}
	}
	if err != nil {
		trade.Status = domain.TradeStatusFailed
		trade.Error = err.Error()
	} else {
		trade.Status = domain.TradeStatusPrepared
	}

	trade = s.record(ctx, trade)
	return trade, err
}

func (s *TradeService) record(ctx context.Context, t domain.Trade) domain.Trade {
	if s.repo != nil {
		saved, err := s.repo.InsertTrade(ctx, t)
		if err == nil {
			return saved
		}
		log.Printf("trade persist error: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.recent = append([]domain.Trade{t}, s.recent...)
	if len(s.recent) > recentTradesCap {
		s.recent = s.recent[:recentTradesCap]
	}
	return t
}

func (s *TradeService) ListTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	_, span := s.tracer.Start(ctx, "trade-service.list-trades")
	defer span.End()

	if limit <= 0 {
		limit = repository.DefaultSignalLimit
	}
	if limit > repository.MaxSignalLimit {
		limit = repository.MaxSignalLimit
	}
	if s.repo != nil {
		return s.repo.ListTrades(ctx, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]domain.Trade, limit)
	copy(out, s.recent[:limit])
	return out, nil
}
