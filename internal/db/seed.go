package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/services"
)

type templateSeed struct {
	name      string
	questions []string
}

var defaultTemplates = []templateSeed{
	{
		name: "Пульс-опрос (1–5)",
		questions: []string{
			"Уровень стресса за последние 7 дней",
			"Насколько хватает энергии на работу",
			"Насколько комфортна атмосфера в команде",
			"Баланс работы и личной жизни",
			"Общая удовлетворённость неделей",
		},
	},
	{
		name: "Анти-выгорание (1–5)",
		questions: []string{
			"Усталость: насколько часто к концу дня нет сил",
			"Сон: насколько удаётся высыпаться",
			"Перегруз: сколько задач одновременно давит",
			"Восстановление: получается ли нормально отдыхать",
			"Выгорание: есть ли ощущение эмоционального истощения",
			"Дедлайны: насколько реалистичны сроки",
			"Поддержка: можно ли попросить помощь у команды/лида",
			"Мотивация: насколько интересно работать сейчас",
		},
	},
	{
		name: "Командный климат (1–5)",
		questions: []string{
			"Коммуникация: насколько легко договориться с коллегами",
			"Напряжение: как часто возникают конфликты/споры",
			"Поддержка: безопасно ли высказывать мнение",
			"Уважение: ощущаешь ли уважение в команде",
			"Ясность: понятно ли распределены роли и ответственность",
			"Справедливость: насколько честно распределяется нагрузка",
			"Общее: комфортно ли работать в этой команде",
		},
	},
}

// SeedOptions configures Seed.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Log        *zap.Logger
}

// Seed makes sure the admin account exists with the configured password and
// that the default templates are present. Running it again only resets the
// admin account.
func Seed(ctx context.Context, store Store, opts SeedOptions) error {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := seedAdmin(ctx, store, opts); err != nil {
		return err
	}
	log.Info("Admin ready", zap.String("email", strings.ToLower(opts.AdminEmail)))

	for _, ts := range defaultTemplates {
		existing, err := store.FindTemplateByName(ctx, ts.name)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Debug("Template exists", zap.String("name", ts.name))
			continue
		}
		tpl := &models.SurveyTemplate{ID: uuid.NewString(), Name: ts.name, CreatedAt: time.Now().UTC()}
		for i, text := range ts.questions {
			tpl.Questions = append(tpl.Questions, models.Question{
				ID:       uuid.NewString(),
				Text:     text,
				Type:     "scale",
				Position: i + 1,
			})
		}
		if err := store.AddTemplate(ctx, tpl); err != nil {
			return fmt.Errorf("seed template %q: %w", ts.name, err)
		}
		log.Info("Template created", zap.String("name", ts.name), zap.Int("questions", len(tpl.Questions)))
	}
	return nil
}

func seedAdmin(ctx context.Context, store Store, opts SeedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" || opts.AdminPassword == "" {
		return fmt.Errorf("seed admin: email and password are required")
	}
	if len(opts.AdminPassword) > services.MaxPasswordLength {
		return fmt.Errorf("seed admin: password longer than %d bytes", services.MaxPasswordLength)
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	u, err := store.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u != nil {
		u.PassHash = hash
		u.Role = models.RoleAdmin
		u.Approved = true
		u.Name = "Admin"
		return store.UpdateUser(ctx, u)
	}
	return store.AddUser(ctx, &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		PassHash:  hash,
		Name:      "Admin",
		Role:      models.RoleAdmin,
		Approved:  true,
		CreatedAt: time.Now().UTC(),
	})
}
