package tesira

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtools/tesira/ttp"
)

func TestCommandBuilderBuild(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name    string
		builder *CommandBuilder
		want    string
	}{
		{
			name: "get with index",
			builder: catalog.Builder("Level", "Level3").
				Attribute("level").
				Verb(ttp.VerbGet).
				Args(ttp.Int(2)),
			want: "Level3 get level 2\n",
		},
		{
			name: "set float",
			builder: catalog.Builder("Level", "Level3").
				Attribute("level").
				Verb(ttp.VerbSet).
				Args(ttp.Int(2), ttp.Float(-10)),
			want: "Level3 set level 2 -10.0\n",
		},
		{
			name: "number attribute accepts integer",
			builder: catalog.Builder("Level", "Level3").
				Attribute("level").
				Verb(ttp.VerbSet).
				Args(ttp.Int(2), ttp.Int(0)),
			want: "Level3 set level 2 0\n",
		},
		{
			name: "toggle",
			builder: catalog.Builder("Mute", "Mute1").
				Attribute("mute").
				Verb(ttp.VerbToggle).
				Args(ttp.Int(3)),
			want: "Mute1 toggle mute 3\n",
		},
		{
			name: "increment",
			builder: catalog.Builder("Level", "Level1").
				Attribute("level").
				Verb(ttp.VerbIncrement).
				Args(ttp.Int(1), ttp.Float(1.5)),
			want: "Level1 increment level 1 1.5\n",
		},
		{
			name: "two indexes",
			builder: catalog.Builder("Mixer", "Mixer1").
				Attribute("crosspointLevel").
				Verb(ttp.VerbSet).
				Args(ttp.Int(2), ttp.Int(3), ttp.Float(-6)),
			want: "Mixer1 set crosspointLevel 2 3 -6.0\n",
		},
		{
			name: "no indexes",
			builder: catalog.Builder("ToneGenerator", "Tone1").
				Attribute("frequency").
				Verb(ttp.VerbSet).
				Args(ttp.Float(440)),
			want: "Tone1 set frequency 440.0\n",
		},
		{
			name: "constant value",
			builder: catalog.Builder("NoiseGenerator", "Noise1").
				Attribute("noiseType").
				Verb(ttp.VerbSet).
				Args(ttp.Constant("Pink")),
			want: "Noise1 set noiseType Pink\n",
		},
		{
			name: "subscribe with tag setter",
			builder: catalog.Builder("LogicMeter", "LogicMeter1").
				Attribute("state").
				Verb(ttp.VerbSubscribe).
				Args(ttp.Int(1)).
				Tag("Subscription0"),
			want: "LogicMeter1 subscribe state 1 Subscription0\n",
		},
		{
			name: "subscribe with tag argument",
			builder: catalog.Builder("LogicMeter", "LogicMeter1").
				Attribute("state").
				Verb(ttp.VerbSubscribe).
				Args(ttp.Int(1), ttp.String("Subscription0")),
			want: "LogicMeter1 subscribe state 1 Subscription0\n",
		},
		{
			name: "subscribe with rate setter",
			builder: catalog.Builder("AudioMeter", "AudioMeter1").
				Attribute("level").
				Verb(ttp.VerbSubscribe).
				Args(ttp.Int(1)).
				Tag("MyLevel").
				Rate(250 * time.Millisecond),
			want: "AudioMeter1 subscribe level 1 MyLevel 250\n",
		},
		{
			name: "subscribe with rate argument",
			builder: catalog.Builder("AudioMeter", "AudioMeter1").
				Attribute("level").
				Verb(ttp.VerbSubscribe).
				Args(ttp.Int(1), ttp.String("MyLevel"), ttp.Int(250)),
			want: "AudioMeter1 subscribe level 1 MyLevel 250\n",
		},
		{
			name: "unsubscribe",
			builder: catalog.Builder("LogicMeter", "LogicMeter1").
				Attribute("state").
				Verb(ttp.VerbUnsubscribe).
				Args(ttp.Int(1)).
				Tag("Subscription0"),
			want: "LogicMeter1 unsubscribe state 1 Subscription0\n",
		},
		{
			name: "service attribute without value",
			builder: catalog.Builder("SessionServices", "SESSION").
				Attribute("aliases").
				Verb(ttp.VerbGet),
			want: "SESSION get aliases\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.builder.Build()
			require.NoError(t, err)

			line, err := ttp.EncodeCommand(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(line))
		})
	}
}

func TestCommandBuilderValidation(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name    string
		builder *CommandBuilder
		check   func(t *testing.T, err error)
	}{
		{
			name:    "missing target",
			builder: NewCommandBuilder(catalog).BlockType("Level").Attribute("level").Verb(ttp.VerbGet),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingTarget)
			},
		},
		{
			name:    "missing block type",
			builder: NewCommandBuilder(catalog).Target("Level1").Attribute("level").Verb(ttp.VerbGet),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingBlockType)
			},
		},
		{
			name:    "missing attribute",
			builder: catalog.Builder("Level", "Level1").Verb(ttp.VerbGet),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingAttribute)
			},
		},
		{
			name:    "missing verb",
			builder: catalog.Builder("Level", "Level1").Attribute("level").Args(ttp.Int(1)),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingVerb)
			},
		},
		{
			name:    "unknown block type",
			builder: catalog.Builder("Equalizer", "EQ1").Attribute("gain").Verb(ttp.VerbGet),
			check: func(t *testing.T, err error) {
				var unknownBlock *UnknownBlockTypeError
				require.ErrorAs(t, err, &unknownBlock)
				assert.Equal(t, "Equalizer", unknownBlock.Name)
			},
		},
		{
			name:    "unknown attribute",
			builder: catalog.Builder("Level", "Level1").Attribute("gain").Verb(ttp.VerbGet),
			check: func(t *testing.T, err error) {
				var unknownAttr *UnknownAttributeError
				require.ErrorAs(t, err, &unknownAttr)
				assert.Equal(t, "gain", unknownAttr.Attribute)
			},
		},
		{
			name:    "unsupported verb",
			builder: catalog.Builder("AudioMeter", "Meter1").Attribute("level").Verb(ttp.VerbSet).Args(ttp.Int(1), ttp.Float(0)),
			check: func(t *testing.T, err error) {
				var unsupported *UnsupportedVerbError
				require.ErrorAs(t, err, &unsupported)
				assert.Equal(t, ttp.VerbSet, unsupported.Verb)
			},
		},
		{
			name:    "set missing value",
			builder: catalog.Builder("Level", "Level1").Attribute("level").Verb(ttp.VerbSet).Args(ttp.Int(1)),
			check: func(t *testing.T, err error) {
				var arity *ArityError
				require.ErrorAs(t, err, &arity)
				assert.Equal(t, 2, arity.Expected)
				assert.Equal(t, 1, arity.Got)
			},
		},
		{
			name:    "get with extra argument",
			builder: catalog.Builder("Level", "Level1").Attribute("level").Verb(ttp.VerbGet).Args(ttp.Int(1), ttp.Int(2)),
			check: func(t *testing.T, err error) {
				var arity *ArityError
				require.ErrorAs(t, err, &arity)
				assert.Equal(t, 1, arity.Expected)
				assert.Equal(t, 2, arity.Got)
			},
		},
		{
			name:    "boolean attribute rejects number",
			builder: catalog.Builder("Mute", "Mute1").Attribute("mute").Verb(ttp.VerbSet).Args(ttp.Int(1), ttp.Int(0)),
			check: func(t *testing.T, err error) {
				var argType *ArgumentTypeError
				require.ErrorAs(t, err, &argType)
				assert.Equal(t, 1, argType.Position)
				assert.Equal(t, ttp.KindInt, argType.Got)
			},
		},
		{
			name:    "integer attribute rejects float",
			builder: catalog.Builder("Router", "Router1").Attribute("input").Verb(ttp.VerbSet).Args(ttp.Int(1), ttp.Float(2)),
			check: func(t *testing.T, err error) {
				var argType *ArgumentTypeError
				require.ErrorAs(t, err, &argType)
				assert.Equal(t, ttp.KindFloat, argType.Got)
			},
		},
		{
			name:    "index must be integer",
			builder: catalog.Builder("Level", "Level1").Attribute("level").Verb(ttp.VerbGet).Args(ttp.Float(1)),
			check: func(t *testing.T, err error) {
				var argType *ArgumentTypeError
				require.ErrorAs(t, err, &argType)
				assert.Equal(t, 0, argType.Position)
			},
		},
		{
			name:    "index must be non-negative",
			builder: catalog.Builder("Level", "Level1").Attribute("level").Verb(ttp.VerbGet).Args(ttp.Int(-1)),
			check: func(t *testing.T, err error) {
				var argType *ArgumentTypeError
				require.ErrorAs(t, err, &argType)
			},
		},
		{
			name:    "subscribe missing tag",
			builder: catalog.Builder("LogicMeter", "LogicMeter1").Attribute("state").Verb(ttp.VerbSubscribe).Args(ttp.Int(1)),
			check: func(t *testing.T, err error) {
				var arity *ArityError
				require.ErrorAs(t, err, &arity)
				assert.Equal(t, 2, arity.Expected)
			},
		},
		{
			name:    "subscribe tag of wrong kind",
			builder: catalog.Builder("LogicMeter", "LogicMeter1").Attribute("state").Verb(ttp.VerbSubscribe).Args(ttp.Int(1), ttp.Int(2)),
			check: func(t *testing.T, err error) {
				var argType *ArgumentTypeError
				require.ErrorAs(t, err, &argType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCommandBuilderReusableAfterFailure(t *testing.T) {
	b := DefaultCatalog().Builder("Level", "Level1").
		Attribute("level").
		Verb(ttp.VerbSet).
		Args(ttp.Int(1))

	_, err := b.Build()
	var arity *ArityError
	require.ErrorAs(t, err, &arity)

	cmd, err := b.Args(ttp.Int(1), ttp.Float(-3)).Build()
	require.NoError(t, err)
	assert.Equal(t, "Level1", cmd.InstanceTag)
	assert.Len(t, cmd.Values, 1)
}
