package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceId_UnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    ResourceId
		wantErr bool
	}{
		{
			name: "full id",
			text: "aws:ecs_service:AppServiceStack:AppService",
			want: ResourceId{Provider: "aws", Type: "ecs_service", Namespace: "AppServiceStack", Name: "AppService"},
		},
		{
			name: "no namespace",
			text: "aws:ecr_repository:Repository",
			want: ResourceId{Provider: "aws", Type: "ecr_repository", Name: "Repository"},
		},
		{
			name: "type only",
			text: "aws:ec2_vpc",
			want: ResourceId{Provider: "aws", Type: "ec2_vpc"},
		},
		{
			name: "empty",
			text: "",
			want: ResourceId{},
		},
		{
			name:    "provider without colon",
			text:    "aws",
			wantErr: true,
		},
		{
			name:    "invalid type",
			text:    "aws:ec2 vpc:Vpc",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ResourceId
			err := id.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.want, id)
				assert.Equal(t, tt.text, id.String())
			}
		})
	}
}

func TestResourceId_Matches(t *testing.T) {
	id := ResourceId{Provider: "aws", Type: "ec2_subnet", Namespace: "NetworkStack", Name: "Subnet1"}

	assert.True(t, ResourceId{Type: "ec2_subnet"}.Matches(id))
	assert.True(t, ResourceId{Namespace: "NetworkStack"}.Matches(id))
	assert.False(t, ResourceId{Namespace: "EcrStack"}.Matches(id))
	assert.False(t, ResourceId{Provider: "aws", Type: "ec2_vpc"}.Matches(id))
}

func TestResourceId_Validate(t *testing.T) {
	assert.NoError(t, ResourceId{Provider: "aws", Type: "ec2_vpc", Namespace: "my-stack", Name: "Vpc"}.Validate())
	assert.Error(t, ResourceId{Provider: "aws", Type: "ec2 vpc", Name: "Vpc"}.Validate())
}
