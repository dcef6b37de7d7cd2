package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"quizmaster-service/internal/infra/sqlstore/models"
)

type table struct {
	model       any
	foreignKeys []string
}

var schema = []table{
	{model: (*models.User)(nil)},
	{
		model:       (*models.Quiz)(nil),
		foreignKeys: []string{`("created_by") REFERENCES "users" ("id") ON DELETE CASCADE`},
	},
	{
		model:       (*models.Question)(nil),
		foreignKeys: []string{`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`},
	},
	{
		model:       (*models.Choice)(nil),
		foreignKeys: []string{`("question_id") REFERENCES "questions" ("id") ON DELETE CASCADE`},
	},
	{
		model: (*models.Submission)(nil),
		foreignKeys: []string{
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model: (*models.Answer)(nil),
		foreignKeys: []string{
			`("submission_id") REFERENCES "submissions" ("id") ON DELETE CASCADE`,
			`("question_id") REFERENCES "questions" ("id") ON DELETE CASCADE`,
			`("choice_id") REFERENCES "choices" ("id") ON DELETE CASCADE`,
		},
	},
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				for _, t := range schema {
					q := tx.NewCreateTable().Model(t.model).IfNotExists()
					for _, fk := range t.foreignKeys {
						q = q.ForeignKey(fk)
					}
					if _, err := q.Exec(ctx); err != nil {
						return err
					}
				}
				for _, idx := range []struct{ name, table, column string }{
					{"questions_quiz_id_idx", "questions", "quiz_id"},
					{"choices_question_id_idx", "choices", "question_id"},
					{"answers_submission_id_idx", "answers", "submission_id"},
				} {
					if _, err := tx.NewCreateIndex().
						Table(idx.table).
						Index(idx.name).
						Column(idx.column).
						IfNotExists().
						Exec(ctx); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			for i := len(schema) - 1; i >= 0; i-- {
				if _, err := db.NewDropTable().Model(schema[i].model).IfExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
