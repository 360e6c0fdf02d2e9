package construct

// Properties are the CloudFormation properties of a resource, as they appear in the template.
type Properties map[string]any

type Resource struct {
	ID ResourceId
	// CfnType is the CloudFormation type, e.g. `AWS::ECS::Service`.
	CfnType string
	// Path is the construct path from the `aws:cdk:path` metadata, e.g. `NetworkStack/Vpc/PublicSubnetSubnet1/Subnet`.
	Path       string
	Properties Properties
}

func CreateResource(id ResourceId, cfnType string) *Resource {
	return &Resource{
		ID:         id,
		CfnType:    cfnType,
		Properties: make(Properties),
	}
}
